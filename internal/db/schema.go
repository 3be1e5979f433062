package db

// Schema stores message metadata plus the two tables owned by the safe-render
// core: message_html (raw body + sanitized cache) and assets (frozen remote
// images). Attachment data is parsed from .eml files on-demand.
const schema = `
-- Main emails table (metadata only)
CREATE TABLE IF NOT EXISTS emails (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path TEXT UNIQUE NOT NULL,
    message_id TEXT,
    subject TEXT,
    sender TEXT NOT NULL,
    sender_name TEXT,
    recipients TEXT,
    date DATETIME,
    body_text_preview TEXT,  -- First 10KB for FTS5 search only
    has_attachments BOOLEAN DEFAULT 0,
    attachment_count INTEGER DEFAULT 0,
    file_size INTEGER,
    indexed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Full-text search virtual table
CREATE VIRTUAL TABLE IF NOT EXISTS emails_fts USING fts5(
    subject,
    sender,
    sender_name,
    recipients,
    body_text_preview,
    content='emails',
    content_rowid='id'
);

-- Triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS emails_ai AFTER INSERT ON emails BEGIN
    INSERT INTO emails_fts(rowid, subject, sender, sender_name, recipients, body_text_preview)
    VALUES (new.id, new.subject, new.sender, new.sender_name, new.recipients, new.body_text_preview);
END;

CREATE TRIGGER IF NOT EXISTS emails_ad AFTER DELETE ON emails BEGIN
    DELETE FROM emails_fts WHERE rowid = old.id;
END;

CREATE TRIGGER IF NOT EXISTS emails_au AFTER UPDATE ON emails BEGIN
    UPDATE emails_fts
    SET subject = new.subject,
        sender = new.sender,
        sender_name = new.sender_name,
        recipients = new.recipients,
        body_text_preview = new.body_text_preview
    WHERE rowid = new.id;
END;

-- Per-message HTML body: raw is written once at index time, sanitized is a
-- cache owned by the render pipeline and cleared by the freeze engine
CREATE TABLE IF NOT EXISTS message_html (
    email_id INTEGER PRIMARY KEY,
    html_raw TEXT NOT NULL,
    html_sanitized TEXT,
    FOREIGN KEY(email_id) REFERENCES emails(id) ON DELETE CASCADE
);

-- Frozen remote images, one row per (message, original URL)
CREATE TABLE IF NOT EXISTS assets (
    id TEXT PRIMARY KEY,
    email_id INTEGER NOT NULL,
    original_url TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('downloaded', 'failed', 'skipped')),
    storage_path TEXT,
    content_type TEXT,
    size INTEGER,
    sha256 TEXT,
    error TEXT,
    downloaded_at DATETIME,
    UNIQUE(email_id, original_url),
    FOREIGN KEY(email_id) REFERENCES emails(id) ON DELETE CASCADE
);

-- Attachments table (metadata only, no BLOB data)
CREATE TABLE IF NOT EXISTS attachments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email_id INTEGER NOT NULL,
    filename TEXT NOT NULL,
    content_type TEXT,
    size INTEGER,
    FOREIGN KEY(email_id) REFERENCES emails(id) ON DELETE CASCADE
);

-- Settings table (for storing email folder path, preferences)
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes for performance
CREATE INDEX IF NOT EXISTS idx_emails_date ON emails(date DESC);
CREATE INDEX IF NOT EXISTS idx_emails_sender ON emails(sender);
CREATE INDEX IF NOT EXISTS idx_emails_file_path ON emails(file_path);
CREATE INDEX IF NOT EXISTS idx_emails_message_id ON emails(message_id);
CREATE INDEX IF NOT EXISTS idx_attachments_email_id ON attachments(email_id);
CREATE INDEX IF NOT EXISTS idx_assets_email_id ON assets(email_id);
`
