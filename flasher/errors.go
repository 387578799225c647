package flasher

import "fmt"

// NoLoaderError indicates the parsed package contains no entry of
// type loader.
type NoLoaderError struct {
	Path string
}

func (e *NoLoaderError) Error() string {
	return fmt.Sprintf("flasher: %s contains no loader image", e.Path)
}
