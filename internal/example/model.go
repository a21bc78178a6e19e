// Package example provides models and repository for pronunciation
// examples: short video clips showing how a public figure's name is
// pronounced, ranked by community votes.
package example

import (
	"regexp"
	"strings"
	"time"

	"github.com/hearsayhq/hearsay/internal/figure"
	"github.com/hearsayhq/hearsay/internal/vote"
)

// Creator is the denormalized profile shape embedded in listing results.
// Nullable on an example: the creating account may have been deleted.
type Creator struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	FullName  string  `json:"full_name"`
	AvatarKey *string `json:"avatar_key,omitempty"`
}

// Example represents one pronunciation example: a clip [StartSeconds,
// EndSeconds) of a video, attached to a figure.
//
// Upvotes, Downvotes and Score are server-authoritative: they are
// maintained by the vote repository inside the same transaction as every
// vote write and are never accepted from clients.
type Example struct {
	ID       string `json:"id"`
	FigureID string `json:"figure_id"`

	VideoID      string  `json:"video_id"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Note         string  `json:"note,omitempty"`

	Upvotes   int     `json:"upvotes"`
	Downvotes int     `json:"downvotes"`
	Score     float64 `json:"score"`

	CreatedBy *string   `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Denormalized joins populated by the repository.
	Figure  *figure.Summary `json:"figure,omitempty"`
	Creator *Creator        `json:"creator,omitempty"`

	// UserVote is the viewer's own vote, attached by the listing service.
	// Nil when the viewer is anonymous or has not voted.
	UserVote *vote.Vote `json:"user_vote,omitempty"`
}

// videoIDPattern matches an 11-character YouTube video id.
var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// videoURLPatterns extract the video id from the URL forms users paste.
var videoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^([a-zA-Z0-9_-]{11})$`),
}

// ExtractVideoID extracts a video id from a URL or bare id.
// Returns empty string when no id can be extracted.
func ExtractVideoID(url string) string {
	if url == "" {
		return ""
	}
	for _, pattern := range videoURLPatterns {
		if m := pattern.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

// MaxNoteLength bounds the optional free-text note.
const MaxNoteLength = 500

// Validate checks the example's writable fields. Returns a user-safe
// message when invalid, empty string when valid.
func (e *Example) Validate() string {
	if strings.TrimSpace(e.FigureID) == "" {
		return "figure is required"
	}
	if !videoIDPattern.MatchString(e.VideoID) {
		return "invalid video ID format"
	}
	if e.StartSeconds < 0 || e.EndSeconds < 0 {
		return "timestamps must be positive numbers"
	}
	if e.StartSeconds >= e.EndSeconds {
		return "end timestamp must be greater than start timestamp"
	}
	if len(e.Note) > MaxNoteLength {
		return "note is too long"
	}
	return ""
}
