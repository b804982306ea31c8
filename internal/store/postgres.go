package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/housie-backend/internal/catalog"
	"github.com/DoyleJ11/housie-backend/internal/engine"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const uniqueViolation = "23505"

// Postgres keeps rooms, their event journal and user accounts in postgres.
type Postgres struct {
	db  *gorm.DB
	cat *catalog.Catalog
	log *zap.Logger
}

func Open(dsn string, cat *catalog.Catalog, log *zap.Logger) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&roomRecord{}, &eventRecord{}, &userRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db, cat: cat, log: log.Named("store")}, nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (p *Postgres) SaveRoom(ctx context.Context, s engine.State) error {
	rec := toRoomRecord(s)
	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", engine.ErrCodeConflict, s.Code)
		}
		return fmt.Errorf("save room %s: %w", s.Code, err)
	}
	return nil
}

func (p *Postgres) AppendEvents(ctx context.Context, room string, fromVersion int, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}
	recs := make([]eventRecord, len(events))
	for i, e := range events {
		recs[i] = toEventRecord(room, fromVersion+1, e)
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&recs).Error
	})
}

func (p *Postgres) LoadRooms(ctx context.Context) ([]Room, error) {
	db := p.db.WithContext(ctx)

	var rooms []roomRecord
	if err := db.Order("created_at").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	var events []eventRecord
	if err := db.Order("id").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	byRoom := make(map[string]*Room, len(rooms))
	out := make([]Room, len(rooms))
	for i, r := range rooms {
		out[i] = Room{Initial: r.initial(p.cat), Events: []engine.Event{}}
		byRoom[r.Code] = &out[i]
	}
	for _, rec := range events {
		room, ok := byRoom[rec.RoomCode]
		if !ok {
			p.log.Warn("event for unknown room", zap.String("room", rec.RoomCode), zap.Uint("id", rec.ID))
			continue
		}
		e, err := rec.event()
		if err != nil {
			return nil, err
		}
		room.Events = append(room.Events, e)
		room.Version = rec.Version
	}
	return out, nil
}

func (p *Postgres) SaveUser(ctx context.Context, u User) error {
	rec := userRecord{Username: u.Username, PasswordHash: u.PasswordHash, CreatedAt: u.CreatedAt}
	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (p *Postgres) FindUser(ctx context.Context, username string) (User, error) {
	var rec userRecord
	err := p.db.WithContext(ctx).Where("username = ?", username).First(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return User{}, ErrUserNotFound
	case err != nil:
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return User{Username: rec.Username, PasswordHash: rec.PasswordHash, CreatedAt: rec.CreatedAt}, nil
}
