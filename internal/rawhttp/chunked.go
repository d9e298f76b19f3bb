package rawhttp

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
)

var (
	errChunkSize       = errors.New("invalid chunk size")
	errChunkTerminator = errors.New("chunk data not followed by a line break")
	errChunkTruncated  = errors.New("chunk shorter than its declared size")
	errChunkUnfinished = errors.New("missing last chunk")
)

// dechunk decodes a chunked body. Framing lines may end in CRLF or a bare
// LF. Chunk extensions are ignored and trailer lines are dropped.
func dechunk(body []byte) ([]byte, error) {
	br := bufio.NewReader(bytes.NewReader(body))
	out := make([]byte, 0, len(body))

	for {
		line, err := readChunkLine(br)
		if err != nil {
			if err == io.EOF {
				return nil, errChunkUnfinished
			}
			return nil, err
		}

		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		size, err := strconv.ParseUint(strings.TrimSpace(line), 16, 63)
		if err != nil {
			return nil, errChunkSize
		}

		if size == 0 {
			return out, skipTrailers(br)
		}
		if size > uint64(len(body)) {
			return nil, errChunkTruncated
		}

		start := len(out)
		out = append(out, make([]byte, size)...)
		if _, err := io.ReadFull(br, out[start:]); err != nil {
			return nil, errChunkTruncated
		}

		if err := readChunkEnd(br); err != nil {
			return nil, err
		}
	}
}

// readChunkLine reads one framing line without its line break. A final
// line without a line break is returned as is.
func readChunkLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}

	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

func readChunkEnd(br *bufio.Reader) error {
	b, err := br.ReadByte()
	if err == nil && b == '\r' {
		b, err = br.ReadByte()
	}
	if err != nil || b != '\n' {
		return errChunkTerminator
	}

	return nil
}

func skipTrailers(br *bufio.Reader) error {
	for {
		line, err := readChunkLine(br)
		if err == io.EOF || (err == nil && line == "") {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
