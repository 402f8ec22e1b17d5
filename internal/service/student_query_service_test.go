package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-admin/internal/dashboard"
)

func TestStudentQueryServiceCachesPages(t *testing.T) {
	api := newFakeStudentAPI()
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	svc := NewStudentQueryService(api, cache, time.Minute, nil)
	ctx := context.Background()
	key := dashboard.QueryKey{Page: 1, Search: "ali"}

	page, hit, err := svc.List(ctx, key)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, page.Students, 3)

	page, hit, err = svc.List(ctx, key)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, page.Students, 3)
	assert.Equal(t, 1, api.listCalls())

	require.NoError(t, svc.Invalidate(ctx))
	assert.Equal(t, []string{"students:*"}, repo.deleted)
	assert.Equal(t, 0, repo.len())

	_, hit, err = svc.List(ctx, key)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, api.listCalls())
}

func TestStudentQueryServiceSharesConcurrentMisses(t *testing.T) {
	api := newFakeStudentAPI()
	api.listDelay = 50 * time.Millisecond
	svc := NewStudentQueryService(api, nil, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.List(context.Background(), dashboard.QueryKey{Page: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Less(t, api.listCalls(), 5)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, cache.Set(context.Background(), "students:page=1:name=", map[string]int{"a": 1}, 0))
	var dest map[string]int
	hit, err := cache.Get(context.Background(), "students:page=1:name=", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0, repo.len())
}

func TestStudentQueryServiceIgnoresFirstCallerCancel(t *testing.T) {
	api := newFakeStudentAPI()
	api.listDelay = 50 * time.Millisecond
	svc := NewStudentQueryService(api, nil, time.Minute, nil)
	key := dashboard.QueryKey{Page: 1}

	first, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, _, err := svc.List(first, key)
		firstDone <- err
	}()
	require.Eventually(t, func() bool { return api.listCalls() == 1 }, time.Second, time.Millisecond)

	secondDone := make(chan error, 1)
	go func() {
		page, _, err := svc.List(context.Background(), key)
		if err == nil {
			assert.Len(t, page.Students, 3)
		}
		secondDone <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	assert.NoError(t, <-secondDone)
	<-firstDone
	assert.Equal(t, 1, api.listCalls())
}
