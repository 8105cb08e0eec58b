package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agrinova-api/pkg/models"

	"github.com/nats-io/nats.go"
)

// Publisher はセンサー更新を外部に配信します。
type Publisher interface {
	Enabled() bool
	Publish(ctx context.Context, readings []models.SensorReading) error
	Close() error
}

// NopPublisher は何も配信しません。NATSが未設定の場合に使います。
type NopPublisher struct{}

func (NopPublisher) Enabled() bool { return false }

func (NopPublisher) Publish(context.Context, []models.SensorReading) error { return nil }

func (NopPublisher) Close() error { return nil }

// SensorTickMessage is the JSON body published for every feed tick.
type SensorTickMessage struct {
	Timestamp time.Time              `json:"timestamp"`
	Sensors   []models.SensorReading `json:"sensors"`
}

// NATSPublisher はセンサー更新をNATSのサブジェクトへ配信します。
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("agrinova-api"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

func (p *NATSPublisher) Enabled() bool { return true }

// Publish は1回分の更新を1メッセージとして送ります。
func (p *NATSPublisher) Publish(ctx context.Context, readings []models.SensorReading) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(SensorTickMessage{Timestamp: time.Now().UTC(), Sensors: readings})
	if err != nil {
		return fmt.Errorf("serialization error: %w", err)
	}
	if err := p.nc.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish failure: %w", err)
	}
	return nil
}

// Close は未送信分をフラッシュしてから接続を閉じます。
func (p *NATSPublisher) Close() error {
	if p.nc == nil || p.nc.IsClosed() {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return err
	}
	return nil
}
