package domain

import "io"

// Upload is an inbound file attachment: descriptive metadata plus the
// byte stream, consumed incrementally by the blob layer.
type Upload struct {
	Filename    string
	ContentType string
	Category    Category
	Body        io.Reader
}
