package metadata

import "fmt"

// TagLoadError reports an existing tag that could not be read. A file without
// any tag is not an error.
type TagLoadError struct {
	Path     string
	Original error
}

func (e *TagLoadError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("Tag load error: %s: %v", e.Path, e.Original)
	}
	return fmt.Sprintf("Tag load error: %s", e.Path)
}

func (e *TagLoadError) Unwrap() error {
	return e.Original
}

// TagWriteError reports a failure to persist a tag to disk.
type TagWriteError struct {
	Path     string
	Original error
}

func (e *TagWriteError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("Tag write error: %s: %v", e.Path, e.Original)
	}
	return fmt.Sprintf("Tag write error: %s", e.Path)
}

func (e *TagWriteError) Unwrap() error {
	return e.Original
}
