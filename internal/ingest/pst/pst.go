// Package pst implements PST/OST file ingestion as a second archiver source,
// parallel to live IMAP sync: it extracts messages from Microsoft Outlook
// personal storage files and writes each as an .eml blob.
package pst

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	charsets "github.com/emersion/go-message/charset"
	"github.com/mooijtech/go-pst/v6/pkg"
	"github.com/mooijtech/go-pst/v6/pkg/properties"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"

	"github.com/eslider/imaptalk/internal/blobstore"
)

func init() {
	pst.ExtendCharsets(func(name string, enc encoding.Encoding) {
		charsets.RegisterEncoding(name, enc)
	})
}

// ProgressFunc receives progress updates during PST import.
type ProgressFunc func(phase string, current, total int)

// Import extracts every message from a PST/OST file and writes it to store
// under keyPrefix/<sanitized-folder>/<checksum>-<n>.eml. Returns the count
// of extracted messages and the count of items that failed to convert.
func Import(ctx context.Context, pstPath, keyPrefix string, store blobstore.BlobStore, onProgress ProgressFunc) (int, int, error) {
	if onProgress == nil {
		onProgress = func(string, int, int) {}
	}

	var extracted, errCount int
	var importErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				importErr = eris.Wrap(fmt.Errorf("%v", r), "go-pst panic")
			}
		}()
		extracted, errCount, importErr = importGoPst(ctx, pstPath, keyPrefix, store, onProgress)
	}()
	if importErr == nil {
		return extracted, errCount, nil
	}

	// Fallback to readpst (pst-utils) for OST formats / btree bugs go-pst
	// chokes on. readpst writes to the local filesystem, so the result is
	// re-read and pushed through store afterward to keep a uniform sink.
	log.Printf("WARN: go-pst failed (%v), trying readpst fallback", importErr)
	return importReadpst(ctx, pstPath, keyPrefix, store, onProgress)
}

func importGoPst(ctx context.Context, pstPath, keyPrefix string, store blobstore.BlobStore, onProgress ProgressFunc) (int, int, error) {
	f, err := os.Open(pstPath)
	if err != nil {
		return 0, 0, fmt.Errorf("open PST: %w", err)
	}
	defer f.Close()

	pstFile, err := pst.New(f)
	if err != nil {
		return 0, 0, fmt.Errorf("parse PST: %w", err)
	}
	defer pstFile.Cleanup()

	var extracted, errCount int
	onProgress("extracting", 0, 0)

	if err := pstFile.WalkFolders(func(folder *pst.Folder) error {
		folderPath := sanitizeFolderName(folder.Name)

		iter, err := folder.GetMessageIterator()
		if eris.Is(err, pst.ErrMessagesNotFound) {
			return nil
		} else if err != nil {
			log.Printf("WARN: PST folder %q: %v", folder.Name, err)
			return nil
		}

		for iter.Next() {
			msg := iter.Value()
			emlData, date := messageToEML(msg)
			if emlData == nil {
				errCount++
				continue
			}

			checksum := contentChecksum(emlData)
			key := fmt.Sprintf("%s/%s/%s-%d.eml", keyPrefix, folderPath, checksum, extracted)
			if err := store.Write(ctx, key, emlData); err != nil {
				log.Printf("WARN: write %s: %v", key, err)
				errCount++
				continue
			}
			_ = date // original dates aren't representable in the blob store's Write API

			extracted++
			if extracted%100 == 0 {
				onProgress("extracting", extracted, 0)
			}
		}

		if iter.Err() != nil {
			log.Printf("WARN: PST iterator %q: %v", folder.Name, iter.Err())
		}
		return nil
	}); err != nil {
		return extracted, errCount, eris.Wrap(err, "walk PST")
	}

	onProgress("done", extracted, extracted)
	return extracted, errCount, nil
}

// messageToEML converts a PST message to RFC822 .eml format.
func messageToEML(msg *pst.Message) ([]byte, time.Time) {
	var subject, from, to, body string
	var date time.Time

	switch p := msg.Properties.(type) {
	case *properties.Message:
		subject = p.GetSubject()
		from = formatSender(p.GetSenderName(), p.GetSenderEmailAddress())
		to = p.GetDisplayTo()
		body = p.GetBody()
		if ct := p.GetClientSubmitTime(); ct > 0 {
			date = time.Unix(ct, 0)
		} else if dt := p.GetMessageDeliveryTime(); dt > 0 {
			date = time.Unix(dt, 0)
		}
	default:
		// Appointments, contacts, and other non-message items are skipped.
		return nil, time.Time{}
	}

	if date.IsZero() {
		date = time.Now()
	}

	var sb strings.Builder
	sb.WriteString("From: " + escapeHeader(from) + "\r\n")
	sb.WriteString("To: " + escapeHeader(to) + "\r\n")
	sb.WriteString("Subject: " + escapeHeader(subject) + "\r\n")
	sb.WriteString("Date: " + date.Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	sb.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	sb.WriteString("X-Imported-From: PST\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)

	return []byte(sb.String()), date
}

func formatSender(name, email string) string {
	if name != "" && email != "" {
		return fmt.Sprintf("%s <%s>", name, email)
	}
	if email != "" {
		return email
	}
	return name
}

func escapeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

func contentChecksum(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

// importReadpst shells out to readpst (pst-utils) when go-pst fails, extracts
// to a scratch directory, then pushes every .eml it produced through store.
func importReadpst(ctx context.Context, pstPath, keyPrefix string, store blobstore.BlobStore, onProgress ProgressFunc) (int, int, error) {
	if _, err := exec.LookPath("readpst"); err != nil {
		return 0, 0, fmt.Errorf("readpst not installed (install pst-utils), go-pst failed earlier")
	}

	scratch, err := os.MkdirTemp("", "pst-readpst-*")
	if err != nil {
		return 0, 0, fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	onProgress("extracting", 0, 0)
	cmd := exec.Command("readpst", "-e", "-o", scratch, "-j", "0", pstPath)
	if err := cmd.Run(); err != nil {
		return 0, 0, fmt.Errorf("readpst: %w", err)
	}

	var count int
	walkErr := filepath.Walk(scratch, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.ToLower(filepath.Ext(path)) != ".eml" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("WARN: read %s: %v", path, err)
			return nil
		}
		rel, _ := filepath.Rel(scratch, path)
		folderPath := sanitizeFolderName(filepath.Dir(rel))
		checksum := contentChecksum(data)
		key := fmt.Sprintf("%s/%s/%s-%d.eml", keyPrefix, folderPath, checksum, count)
		if err := store.Write(ctx, key, data); err != nil {
			log.Printf("WARN: write %s: %v", key, err)
			return nil
		}
		count++
		return nil
	})
	if walkErr != nil {
		return count, 0, fmt.Errorf("walk readpst output: %w", walkErr)
	}

	onProgress("done", count, count)
	return count, 0, nil
}

func sanitizeFolderName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|' {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." {
		return "other"
	}
	if len(name) > 60 {
		name = name[:60]
	}
	return name
}
