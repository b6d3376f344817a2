package pubsub

import (
	"context"
	"fmt"
	"time"

	qdb "github.com/questdb/go-questdb-client/v3"
)

const defaultQuestDBPort = 9000

type QuestDBConfig struct {
	// Table is the name of the ledger table.
	Table string

	// AutoFlushRows is the number of rows buffered before a flush.
	AutoFlushRows int

	RetryTimeout time.Duration
}

func DefaultQuestDBConfig() *QuestDBConfig {
	return &QuestDBConfig{
		Table:         "written_files",
		AutoFlushRows: 1,
		RetryTimeout:  time.Second,
	}
}

// QuestDBDialer opens sessions that record every file message
// as a row of a QuestDB table. It is meant to keep a queryable ledger
// of the produced files next to, or instead of, a message broker.
// Only the first nameserver is used.
type QuestDBDialer struct {
	cfg *QuestDBConfig
}

func NewQuestDBDialer(cfg *QuestDBConfig) *QuestDBDialer {
	return &QuestDBDialer{cfg: cfg}
}

// Open implements [Dialer].
func (qd *QuestDBDialer) Open(ctx context.Context, cfg *Config) (Session, error) {
	sender, err := qdb.NewLineSender(ctx,
		qdb.WithHttp(),
		qdb.WithAddress(cfg.addresses("localhost", defaultQuestDBPort)[0]),
		qdb.WithAutoFlushRows(qd.cfg.AutoFlushRows),
		qdb.WithRetryTimeout(qd.cfg.RetryTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("pubsub: connecting to questdb: %w", err)
	}

	return &questDBSession{
		sender: sender,
		table:  qd.cfg.Table,
		name:   cfg.Name,
	}, nil
}

// ledgerRow is the subset of a file message stored in the ledger.
type ledgerRow struct {
	UID         string `json:"uid"`
	URI         string `json:"uri"`
	ProductName string `json:"productname"`
	Area        struct {
		AreaID string `json:"area_id"`
	} `json:"area"`
}

type questDBSession struct {
	sender qdb.LineSender
	table  string
	name   string
}

func (qs *questDBSession) Publish(ctx context.Context, msg *Message) error {
	row := ledgerRow{}
	if err := msg.UnmarshalData(&row); err != nil {
		return fmt.Errorf("pubsub: decoding ledger row: %w", err)
	}

	return qs.sender.Table(qs.table).
		Symbol("publisher", qs.name).
		Symbol("subject", msg.Subject).
		Symbol("type", msg.Type).
		Symbol("productname", row.ProductName).
		Symbol("area_id", row.Area.AreaID).
		StringColumn("message_id", msg.ID).
		StringColumn("uid", row.UID).
		StringColumn("uri", row.URI).
		At(ctx, msg.Time)
}

func (qs *questDBSession) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return qs.sender.Close(ctx)
}
