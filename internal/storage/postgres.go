package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/xaenox/planner-bot/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// PostgresJournal stores deliveries in PostgreSQL.
type PostgresJournal struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresJournal(config DatabaseConfig, logger *zap.Logger) (*PostgresJournal, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	journal := &PostgresJournal{db: db, logger: logger}

	if err := journal.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	logger.Info("Delivery journal ready",
		zap.String("host", config.Host),
		zap.String("dbname", config.DBName))
	return journal, nil
}

func (j *PostgresJournal) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := j.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (j *PostgresJournal) RecordDelivery(ctx context.Context, d models.Delivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.DeliveredAt.IsZero() {
		d.DeliveredAt = time.Now()
	}

	query := `
		INSERT INTO deliveries (id, kind, entity_id, chat_id, text, delivered_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := j.db.ExecContext(ctx, query,
		d.ID,
		string(d.Kind),
		d.EntityID,
		d.ChatID,
		d.Text,
		d.DeliveredAt,
		d.Error,
	)
	if err != nil {
		return fmt.Errorf("error recording delivery: %w", err)
	}
	return nil
}

func (j *PostgresJournal) RecentDeliveries(ctx context.Context, chatID int64, limit int) ([]models.Delivery, error) {
	query := `
		SELECT id, kind, entity_id, chat_id, text, delivered_at, error
		FROM deliveries
		WHERE chat_id = $1
		ORDER BY delivered_at DESC
		LIMIT $2`

	rows, err := j.db.QueryContext(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []models.Delivery
	for rows.Next() {
		var d models.Delivery
		var kind string
		if err := rows.Scan(&d.ID, &kind, &d.EntityID, &d.ChatID, &d.Text, &d.DeliveredAt, &d.Error); err != nil {
			return nil, fmt.Errorf("error scanning delivery: %w", err)
		}
		d.Kind = models.DeliveryKind(kind)
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deliveries: %w", err)
	}

	return deliveries, nil
}

func (j *PostgresJournal) Close() error {
	return j.db.Close()
}
