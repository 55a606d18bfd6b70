package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"account-service/internal/storage"
)

// ArchiveConfig names where archived events land.
type ArchiveConfig struct {
	Bucket    string
	KeyPrefix string
	Timeout   time.Duration
	Logger    logrus.FieldLogger
}

// ArchivePublisher stores each event as a JSON object in object storage,
// keyed by day so a bucket listing reads as an audit trail.
type ArchivePublisher struct {
	cfg   ArchiveConfig
	store storage.Service
}

func NewArchivePublisher(cfg ArchiveConfig, store storage.Service) *ArchivePublisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &ArchivePublisher{cfg: cfg, store: store}
}

func (p *ArchivePublisher) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		p.cfg.Logger.Warnf("encode account event: %v", err)
		return
	}

	// the request may already be finishing; the upload gets its own deadline
	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.Timeout)
	defer cancel()

	key := p.objectKey(ev)
	if _, err := p.store.PutObject(uploadCtx, bytes.NewReader(body), storage.PutOptions{
		Bucket:      p.cfg.Bucket,
		Key:         key,
		ContentType: "application/json",
	}); err != nil {
		p.cfg.Logger.WithField("key", key).Warnf("archive account event: %v", err)
	}
}

func (p *ArchivePublisher) objectKey(ev Event) string {
	name := fmt.Sprintf("%s/%d-%s.json",
		ev.At.UTC().Format("2006/01/02"),
		ev.At.UnixNano(),
		uuid.NewString(),
	)
	if p.cfg.KeyPrefix == "" {
		return name
	}
	return p.cfg.KeyPrefix + "/" + name
}
