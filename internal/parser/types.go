package parser

import "time"

// ParsedEmail represents a parsed email with all its components
type ParsedEmail struct {
	MessageID   string
	Subject     string
	Sender      string
	SenderName  string
	Recipients  []string
	CC          []string
	BCC         []string
	Date        time.Time
	BodyText    string
	BodyHTML    string
	Attachments []ParsedAttachment
	InlineParts []ParsedInlinePart
	RawHeaders  string
}

// ParsedAttachment represents an email attachment
type ParsedAttachment struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// ParsedInlinePart represents an inline MIME part referenced from the HTML
// body via <img src="cid:...">. ContentID is stored without angle brackets.
type ParsedInlinePart struct {
	ContentID   string
	ContentType string
	Data        []byte
}
