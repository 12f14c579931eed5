package relay

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"regexp"
)

// HitRatioWindow is how many trailing access-log lines are inspected.
const HitRatioWindow = 1000

const tailChunkSize = 64 << 10

var cacheStatusPattern = regexp.MustCompile(`X-Cache-Status: (\w+)`)

// HitRatio summarises recent nginx cache statuses. Ratio counts EXPIRED as
// served from cache and is a percentage rounded to two decimals.
type HitRatio struct {
	Hits    int
	Misses  int
	Expired int
	Total   int
	Ratio   float64
}

// ReadHitRatio scans the last HitRatioWindow lines of the access log.
// A missing log yields a zero ratio.
func ReadHitRatio(path string) (HitRatio, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return HitRatio{}, nil
		}
		return HitRatio{}, err
	}
	defer f.Close()

	data, err := tailLines(f, HitRatioWindow)
	if err != nil {
		return HitRatio{}, err
	}
	return countCacheStatuses(data), nil
}

func countCacheStatuses(data []byte) HitRatio {
	var r HitRatio
	for _, m := range cacheStatusPattern.FindAllSubmatch(data, -1) {
		switch string(m[1]) {
		case "HIT":
			r.Hits++
		case "MISS":
			r.Misses++
		case "EXPIRED":
			r.Expired++
		}
	}

	r.Total = r.Hits + r.Misses + r.Expired
	if r.Total > 0 {
		r.Ratio = round2(float64(r.Hits+r.Expired) / float64(r.Total) * 100)
	}
	return r
}

// tailLines returns the last n lines of f, reading backwards in chunks.
func tailLines(f *os.File, n int) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	end := info.Size()
	var buf []byte
	for offset := end; offset > 0; {
		size := int64(tailChunkSize)
		if size > offset {
			size = offset
		}
		offset -= size

		chunk := make([]byte, size)
		if _, err := f.ReadAt(chunk, offset); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		buf = append(chunk, buf...)

		// one extra newline: the file usually ends with one
		if bytes.Count(buf, []byte{'\n'}) > n {
			break
		}
	}

	buf = bytes.TrimRight(buf, "\n")
	if idx := nthLastNewline(buf, n); idx >= 0 {
		buf = buf[idx+1:]
	}
	return buf, nil
}

// nthLastNewline returns the index of the n-th newline counting from the end,
// or -1 when buf holds fewer than n+1 lines.
func nthLastNewline(buf []byte, n int) int {
	seen := 0
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i] == '\n' {
			seen++
			if seen == n {
				return i
			}
		}
	}
	return -1
}
