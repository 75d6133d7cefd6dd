package inbox

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var wordDecoder = &mime.WordDecoder{}

func decodeHeader(v string) string {
	decoded, err := wordDecoder.DecodeHeader(v)
	if err != nil {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(decoded)
}

// readBody returns the plain-text content of a message part. Multipart
// messages prefer a text/plain alternative and fall back to text/html.
func readBody(contentType, transferEncoding string, r io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// A missing or broken Content-Type means plain text per RFC 2045.
		mediaType = "text/plain"
	}

	r = decodeTransfer(transferEncoding, r)

	if strings.HasPrefix(mediaType, "multipart/") {
		return readMultipart(r, params["boundary"])
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if mediaType == "text/html" {
		return HTMLToText(string(data))
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

func readMultipart(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", fmt.Errorf("multipart body without boundary")
	}
	mr := multipart.NewReader(r, boundary)

	var plain, html string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read multipart: %w", err)
		}
		if strings.HasPrefix(strings.ToLower(part.Header.Get("Content-Disposition")), "attachment") {
			continue
		}

		ct := part.Header.Get("Content-Type")
		mediaType, _, _ := mime.ParseMediaType(ct)
		if ct == "" {
			mediaType = "text/plain"
		}
		switch {
		case strings.HasPrefix(mediaType, "multipart/"), mediaType == "text/plain", mediaType == "text/html":
		default:
			continue
		}

		text, err := readBody(ct, part.Header.Get("Content-Transfer-Encoding"), part)
		if err != nil {
			return "", err
		}
		if mediaType == "text/html" {
			if html == "" {
				html = text
			}
		} else if plain == "" {
			plain = text
		}
	}

	if strings.TrimSpace(plain) != "" {
		return plain, nil
	}
	return html, nil
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	default:
		return r
	}
}

// HTMLToText renders an HTML email body as plain text, one line per block
// element, with script and style content removed.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6, table, blockquote").AppendHtml("\n")

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
