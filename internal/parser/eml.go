package parser

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/charmap"
)

func init() {
	// Register additional charsets that are commonly used in emails
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

// ParseEMLFile parses an .eml file and returns a ParsedEmail
func ParseEMLFile(filePath string) (*ParsedEmail, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return ParseEML(f)
}

// ParseEML parses an email from a reader
func ParseEML(r io.Reader) (*ParsedEmail, error) {
	// Read the entire message first to capture raw headers
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("failed to read email: %w", err)
	}

	mr, err := mail.CreateReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to create mail reader: %w", err)
	}

	parsed := &ParsedEmail{}

	// Extract raw headers
	parsed.RawHeaders = extractRawHeaders(buf.String())

	// Parse headers
	header := mr.Header

	if msgID := header.Get("Message-Id"); msgID != "" {
		parsed.MessageID = msgID
	}

	// Subject - decode MIME words
	parsed.Subject = decodeMIMEWord(header.Get("Subject"))

	if fromAddrs, err := header.AddressList("From"); err == nil && len(fromAddrs) > 0 {
		parsed.Sender = fromAddrs[0].Address
		parsed.SenderName = fromAddrs[0].Name
	}

	if toAddrs, err := header.AddressList("To"); err == nil {
		for _, addr := range toAddrs {
			parsed.Recipients = append(parsed.Recipients, addr.Address)
		}
	}

	if ccAddrs, err := header.AddressList("Cc"); err == nil {
		for _, addr := range ccAddrs {
			parsed.CC = append(parsed.CC, addr.Address)
		}
	}

	if bccAddrs, err := header.AddressList("Bcc"); err == nil {
		for _, addr := range bccAddrs {
			parsed.BCC = append(parsed.BCC, addr.Address)
		}
	}

	if date, err := header.Date(); err == nil {
		parsed.Date = date
	} else {
		// Use current time as fallback
		parsed.Date = time.Now()
	}

	// Parse body, inline parts and attachments
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read part: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read body: %w", err)
			}

			// Inline parts with a Content-ID are referenced from the HTML
			// body and served separately, they are not a message body
			if cid := h.Get("Content-Id"); cid != "" {
				parsed.InlineParts = append(parsed.InlineParts, ParsedInlinePart{
					ContentID:   NormalizeContentID(cid),
					ContentType: contentType,
					Data:        body,
				})
				continue
			}

			if strings.HasPrefix(contentType, "text/plain") {
				// Keep text even if we already have it (multipart emails have both)
				if parsed.BodyText == "" {
					parsed.BodyText = string(body)
				}
			} else if strings.HasPrefix(contentType, "text/html") {
				// Always prefer HTML if available
				parsed.BodyHTML = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()

			data, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read attachment: %w", err)
			}

			parsed.Attachments = append(parsed.Attachments, ParsedAttachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        int64(len(data)),
				Data:        data,
			})
		}
	}

	return parsed, nil
}

// NormalizeContentID strips any cid: prefix and surrounding angle brackets
// from a Content-ID, in whichever order they appear, matching the form used
// in rewritten image URLs
func NormalizeContentID(cid string) string {
	cid = strings.TrimSpace(cid)
	for {
		if len(cid) >= 4 && strings.EqualFold(cid[:4], "cid:") {
			cid = cid[4:]
			continue
		}
		trimmed := strings.TrimSuffix(strings.TrimPrefix(cid, "<"), ">")
		if trimmed == cid {
			return cid
		}
		cid = trimmed
	}
}

// extractRawHeaders extracts the raw header section from the email
func extractRawHeaders(emailContent string) string {
	// Headers end at the first blank line
	parts := strings.SplitN(emailContent, "\r\n\r\n", 2)
	if len(parts) < 2 {
		parts = strings.SplitN(emailContent, "\n\n", 2)
	}
	if len(parts) > 0 {
		return parts[0]
	}
	return ""
}

// decodeMIMEWord decodes MIME-encoded words (RFC 2047)
// Example: =?UTF-8?Q?Invitaci=C3=B3n?= -> Invitación
func decodeMIMEWord(s string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(s)
	if err != nil {
		// If decoding fails, return original string
		return s
	}
	return decoded
}
