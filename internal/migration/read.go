package migration

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Read returns the text of the file at path with a leading UTF-8 BOM removed
// and the content normalized to NFC.
func Read(ctx context.Context, path string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	adviseSequential(f)

	t := transform.Chain(xunicode.UTF8BOM.NewDecoder(), norm.NFC)
	b, err := io.ReadAll(transform.NewReader(f, t))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

// Checksum returns the hex-encoded xxh3 hash of normalized script text.
func Checksum(text string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(text))
}
