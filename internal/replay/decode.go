package replay

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// decodeBody undoes the content codings listed in contentEncoding, last
// applied first. It returns the decoded body, the normalized coding list and
// whether the decoded output hit max.
func decodeBody(contentEncoding string, body []byte, max int64) ([]byte, string, bool, error) {
	var codings []string
	for _, c := range strings.Split(contentEncoding, ",") {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" && c != "identity" {
			codings = append(codings, c)
		}
	}
	if len(codings) == 0 || len(body) == 0 {
		return body, "", false, nil
	}

	out := body
	truncated := false
	for i := len(codings) - 1; i >= 0; i-- {
		r, err := decoder(codings[i], out)
		if err != nil {
			return body, "", false, err
		}

		out, truncated, err = readCapped(r, max)
		r.Close()
		if err != nil {
			return body, "", false, fmt.Errorf("decoding %s: %w", codings[i], err)
		}
	}

	return out, strings.Join(codings, ", "), truncated, nil
}

func decoder(coding string, body []byte) (io.ReadCloser, error) {
	switch coding {
	case "gzip", "x-gzip":
		return gzip.NewReader(bytes.NewReader(body))
	case "deflate":
		// RFC 9110 deflate is zlib-wrapped; some servers send raw deflate
		if r, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
			return r, nil
		}
		return flate.NewReader(bytes.NewReader(body)), nil
	case "br":
		return io.NopCloser(brotli.NewReader(bytes.NewReader(body))), nil
	case "zstd":
		dec, err := zstd.NewReader(bytes.NewReader(body), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unknown content coding %q", coding)
	}
}

// readCapped reads at most max bytes from r and reports whether more were
// available.
func readCapped(r io.Reader, max int64) ([]byte, bool, error) {
	b, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(b)) > max {
		return b[:max], true, nil
	}
	return b, false, nil
}
