package parser

import (
	"fmt"
	"io"

	"golang.org/x/exp/mmap"
)

type mappedFile struct {
	*io.SectionReader
	ra *mmap.ReaderAt
}

func (m *mappedFile) Close() error {
	return m.ra.Close()
}

// openFile maps name into memory and reads it sequentially.
func openFile(name string) (*mappedFile, error) {
	ra, err := mmap.Open(name)
	if err != nil {
		return nil, fmt.Errorf("mmap '%s': %w", name, err)
	}
	return &mappedFile{
		SectionReader: io.NewSectionReader(ra, 0, int64(ra.Len())),
		ra:            ra,
	}, nil
}
