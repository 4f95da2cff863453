// Package memory holds mutex-guarded in-process repositories. They back the
// service when STORE_DRIVER=memory and serve as fakes in tests.
package memory

import (
	"time"

	"flatmate/internal/domain/entity"
)

// now is swapped in tests that need deterministic timestamps.
var now = time.Now

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneUser(u *entity.User) *entity.User {
	c := *u
	return &c
}

func cloneListing(l *entity.Listing) *entity.Listing {
	c := *l
	c.Images = cloneStrings(l.Images)
	c.Likes = cloneStrings(l.Likes)
	if l.LikedAt != nil {
		c.LikedAt = make(map[string]time.Time, len(l.LikedAt))
		for k, v := range l.LikedAt {
			c.LikedAt[k] = v
		}
	}
	return &c
}

func cloneInterest(r *entity.InterestRecord) *entity.InterestRecord {
	c := *r
	return &c
}

func cloneMessage(m *entity.Message) *entity.Message {
	c := *m
	c.ReadBy = cloneStrings(m.ReadBy)
	return &c
}
