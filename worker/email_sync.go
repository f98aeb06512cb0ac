package worker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"nexcrm/config"
	"nexcrm/models"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"gorm.io/gorm"
)

// EmailSyncWorker polls a shared IMAP inbox and attaches incoming mail to
// deals by matching the sender address against deal contacts. Messages are
// deduplicated on Message-Id, so re-reading the mailbox is safe.
type EmailSyncWorker struct {
	db     *gorm.DB
	logger *log.Logger
}

func NewEmailSyncWorker(db *gorm.DB, logger *log.Logger) *EmailSyncWorker {
	return &EmailSyncWorker{
		db:     db,
		logger: logger,
	}
}

func (ew *EmailSyncWorker) Start(ctx context.Context) {
	cfg := config.AppConfig.IMAP
	if !cfg.Enabled {
		ew.logger.Println("IMAP sync disabled, worker not started")
		return
	}

	ew.logger.Println("Starting email sync worker...")
	interval := time.Duration(cfg.PollInterval) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)

	for {
		select {
		case <-ticker.C:
			if err := ew.syncInbox(); err != nil {
				ew.logger.Printf("Email sync failed: %v", err)
			}
		case <-ctx.Done():
			ew.logger.Println("Stopping email sync worker...")
			ticker.Stop()
			return
		}
	}
}

func (ew *EmailSyncWorker) syncInbox() error {
	cfg := config.AppConfig.IMAP

	imapAddr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	imapClient, err := client.DialTLS(imapAddr, &tls.Config{
		ServerName: cfg.Host,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %v", err)
	}
	defer imapClient.Logout()

	if err := imapClient.Login(cfg.Username, cfg.Password); err != nil {
		return fmt.Errorf("failed to login to IMAP server: %v", err)
	}

	if _, err := imapClient.Select("INBOX", false); err != nil {
		return fmt.Errorf("failed to select mailbox: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{"\\Seen"}
	ids, err := imapClient.Search(criteria)
	if err != nil {
		return fmt.Errorf("failed to search messages: %v", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- imapClient.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchItem("BODY.PEEK[]")}, messages)
	}()

	for msg := range messages {
		if err := ew.processMessage(msg); err != nil {
			ew.logger.Printf("Failed to process message %d: %v", msg.SeqNum, err)
			continue
		}
	}

	if err := <-done; err != nil {
		return fmt.Errorf("error during fetch: %v", err)
	}

	return nil
}

func (ew *EmailSyncWorker) processMessage(msg *imap.Message) error {
	if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
		return nil
	}

	fromAddr := strings.ToLower(msg.Envelope.From[0].Address())
	if fromAddr == "" {
		return nil
	}

	deals, err := ew.matchDeals(fromAddr)
	if err != nil {
		return err
	}
	if len(deals) == 0 {
		return nil
	}

	bodyText := extractBody(msg)

	sentAt := msg.Envelope.Date
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	for _, deal := range deals {
		// Dedup per deal on Message-Id.
		if msg.Envelope.MessageId != "" {
			var count int64
			ew.db.Model(&models.DealEmail{}).
				Where("deal_id = ? AND message_id = ?", deal.ID, msg.Envelope.MessageId).
				Count(&count)
			if count > 0 {
				continue
			}
		}

		email := models.DealEmail{
			DealID:    deal.ID,
			Type:      models.DealEmailReceived,
			Subject:   msg.Envelope.Subject,
			Body:      bodyText,
			MessageID: msg.Envelope.MessageId,
			SentAt:    sentAt,
		}
		if err := ew.db.Create(&email).Error; err != nil {
			ew.logger.Printf("Failed to store email for deal %d: %v", deal.ID, err)
		}
	}

	return nil
}

// matchDeals finds deals whose linked person or entity uses the address.
// Matching runs across all tenants; the worker owns the whole inbox.
func (ew *EmailSyncWorker) matchDeals(fromAddr string) ([]models.Deal, error) {
	var deals []models.Deal
	err := ew.db.
		Joins("LEFT JOIN people ON people.id = deals.person_id AND people.deleted_at IS NULL").
		Joins("LEFT JOIN entities ON entities.id = deals.entity_id AND entities.deleted_at IS NULL").
		Where("LOWER(people.email) = ? OR LOWER(entities.email) = ?", fromAddr, fromAddr).
		Find(&deals).Error
	return deals, err
}

func extractBody(msg *imap.Message) string {
	if msg.Body == nil {
		return ""
	}

	section := imap.BodySectionName{}
	literal, ok := msg.Body[&section]
	if !ok {
		return ""
	}

	mr, err := mail.CreateReader(literal)
	if err != nil {
		return ""
	}

	var bodyText, bodyHTML string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			break
		}

		if h, ok := p.Header.(*mail.InlineHeader); ok {
			contentType, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			if strings.Contains(contentType, "text/plain") {
				bodyText = string(b)
			} else if strings.Contains(contentType, "text/html") {
				bodyHTML = string(b)
			}
		}
	}

	if bodyText != "" {
		return bodyText
	}
	return bodyHTML
}
