package join

import (
	"context"

	"github.com/FelixRabenholdDev/Join/domain"
)

// ContactStreams is the slice of the change-stream source the directory
// needs.
type ContactStreams interface {
	WatchContact(ctx context.Context, contactID string) <-chan domain.Contact
}

// Directory serves live {name, color} projections for contact ids. It is
// a pure read projection: no writes, no suspension beyond the underlying
// subscribe. An id that never resolves to a document keeps projecting the
// sentinel value, which callers must tolerate.
type Directory struct {
	streams ContactStreams
}

func NewDirectory(streams ContactStreams) *Directory {
	return &Directory{streams: streams}
}

// Projections streams the board projection of one contact. The stream
// closes when ctx ends.
func (d *Directory) Projections(ctx context.Context, contactID string) <-chan domain.ContactRef {
	out := make(chan domain.ContactRef, 1)
	in := d.streams.WatchContact(ctx, contactID)
	go func() {
		defer close(out)
		for c := range in {
			sendLatest(out, c.Ref())
		}
	}()
	return out
}
