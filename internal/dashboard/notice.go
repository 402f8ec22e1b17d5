package dashboard

// NoticeKind styles a toast.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

const maxNotices = 5

// Notice is a toast shown once on the next render. TitleID is a message id
// translated at render time; Description is shown verbatim.
type Notice struct {
	Kind        NoticeKind `json:"kind"`
	TitleID     string     `json:"title_id"`
	Description string     `json:"description,omitempty"`
}

// PushNotice queues a notice, dropping the oldest beyond the limit.
func (s *State) PushNotice(n Notice) {
	s.Notices = append(s.Notices, n)
	if len(s.Notices) > maxNotices {
		s.Notices = append([]Notice(nil), s.Notices[len(s.Notices)-maxNotices:]...)
	}
}

// DrainNotices returns the queued notices and clears them.
func (s *State) DrainNotices() []Notice {
	out := s.Notices
	s.Notices = nil
	return out
}
