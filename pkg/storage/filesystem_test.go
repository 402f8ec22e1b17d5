package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveStreamAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, size, err := store.SaveStream("students/a.csv", strings.NewReader("id,name\n1,Ali\n"))
	require.NoError(t, err)
	require.Equal(t, "students/a.csv", name)
	require.EqualValues(t, 14, size)

	file, err := store.Open(name)
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "id,name\n1,Ali\n", string(body))
}

func TestLocalStorageRejectsEscapingNames(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.SaveStream("../outside.csv", strings.NewReader("x"))
	require.Error(t, err)
	_, err = store.Open("/etc/passwd")
	require.Error(t, err)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, _, err = store.SaveStream("old.csv", strings.NewReader("x"))
	require.NoError(t, err)
	_, _, err = store.SaveStream("new.csv", strings.NewReader("y"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("old.csv"), past, past))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"old.csv"}, deleted)

	_, err = os.Stat(store.Path("new.csv"))
	require.NoError(t, err)
}

func TestLocalStorageCleanupRemovesEmptyExportDirs(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, _, err = store.SaveStream("0b4f/students.xlsx", strings.NewReader("x"))
	require.NoError(t, err)
	_, _, err = store.SaveStream("77aa/students.xlsx", strings.NewReader("y"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("0b4f/students.xlsx"), past, past))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join("0b4f", "students.xlsx")}, deleted)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "77aa", entries[0].Name())

	require.NoError(t, store.Delete("77aa/students.xlsx"))
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
