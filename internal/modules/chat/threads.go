package chat

import (
	"sort"
	"strings"
	"time"

	types "github.com/wrenfield/mentorloop-backend/internal/domain"
)

// subjectMaxRunes caps subjects derived from a bare first line.
const subjectMaxRunes = 60

// Thread is a read-model grouping of one student's messages. It is built
// on demand from the flat message list and never persisted.
type Thread struct {
	// Subject is the display subject taken from the thread's first message.
	Subject string `json:"subject"`
	// Normalized is the grouping key Subject reduces to.
	Normalized string `json:"normalized_subject"`

	Messages []*types.Message `json:"messages"`

	// HasDraft is true when the thread holds an agent message still
	// awaiting mentor review.
	HasDraft      bool      `json:"has_draft"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// BuildThreads groups a chronologically-ordered message list into threads.
// A student message opens a new thread whenever its normalized subject
// differs from the open thread's; agent messages stay with the open thread,
// or open an orphan thread when none exists yet. Threads with a pending
// draft sort first, then by most recent message descending; ties keep
// input order, so output is deterministic for a given input.
func BuildThreads(messages []*types.Message) []*Thread {
	ordered := make([]*types.Message, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		ordered = append(ordered, m)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	threads := make([]*Thread, 0, 4)
	var open *Thread

	for _, m := range ordered {
		subject := strings.TrimSpace(m.Subject)
		if subject == "" {
			subject = ExtractSubject(m.Content)
		}
		normalized := NormalizeSubject(subject)

		startNew := open == nil ||
			(m.Role == types.MessageRoleStudent && open.Normalized != normalized)
		if startNew {
			open = &Thread{Subject: subject, Normalized: normalized}
			threads = append(threads, open)
		}

		open.Messages = append(open.Messages, m)
		if m.Role == types.MessageRoleAgent && m.Status == types.MessageStatusDraft {
			open.HasDraft = true
		}
		if m.CreatedAt.After(open.LastMessageAt) {
			open.LastMessageAt = m.CreatedAt
		}
	}

	sort.SliceStable(threads, func(i, j int) bool {
		if threads[i].HasDraft != threads[j].HasDraft {
			return threads[i].HasDraft
		}
		return threads[i].LastMessageAt.After(threads[j].LastMessageAt)
	})
	return threads
}

// ExtractSubject derives a subject from the first line of message content.
// An explicit "Subject:" prefix wins; otherwise the line itself is the
// subject, clamped to subjectMaxRunes. Called at message-write time to
// stash the subject on the row, and by the thread builder as a fallback.
func ExtractSubject(content string) string {
	line := firstLine(content)
	if rest, ok := cutSubjectPrefix(line); ok {
		return strings.TrimSpace(rest)
	}
	return clampRunes(line, subjectMaxRunes)
}

// NormalizeSubject strips repeated "Re:" prefixes, trims, and lowercases,
// so replies group into the thread they answer.
func NormalizeSubject(subject string) string {
	s := strings.TrimSpace(subject)
	for len(s) >= 3 && strings.EqualFold(s[:3], "re:") {
		s = strings.TrimSpace(s[3:])
	}
	return strings.ToLower(s)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func cutSubjectPrefix(line string) (string, bool) {
	const p = "subject:"
	if len(line) >= len(p) && strings.EqualFold(line[:len(p)], p) {
		return line[len(p):], true
	}
	return "", false
}

func clampRunes(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "…"
}
