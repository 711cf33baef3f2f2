package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/power-quality/internal/spectrum"
)

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the Sqlite database at dbPath.
// Connections are opened lazily; the schema is created on first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// Init creates the database file and schema so that failures surface
// before any acquisition starts.
func (s *SqliteStore) Init() error {
	db, err := s.getWriteDB()
	if err != nil {
		return err
	}
	return db.Ping()
}

func (s *SqliteStore) CreateCampaign(ctx context.Context, deviceType, deviceID string, config any) (campaignID int64, err error) {
	configData, err := toConfigData(config)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertCampaignSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, deviceType, deviceID, configData)
	if err != nil {
		err = fmt.Errorf("inserting campaign: %w", err)
		return
	}

	campaignID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting campaign ID: %w", err)
	}
	return
}

func (s *SqliteStore) StoreIteration(ctx context.Context, record *spectrum.IterationRecord) (err error) {
	if record == nil {
		return fmt.Errorf("cannot store nil iteration")
	}

	data, err := toIterationData(record)
	if err != nil {
		return err
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	if _, err = tx.ExecContext(
		ctx,
		insertIterationSQL,
		data.CampaignID,
		data.Iteration,
		data.Timestamp,
		data.Written,
		data.Available,
		data.Lost,
		data.Corrupted,
		data.AnyLost,
		data.AnyCorrupted,
		data.VoltageTHD,
		data.CurrentTHD,
		data.RunningVoltageTHD,
		data.RunningCurrentTHD,
		data.VoltageHarmonics,
		data.CurrentHarmonics,
	); err != nil {
		return fmt.Errorf("inserting iteration: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *SqliteStore) FinishCampaign(ctx context.Context, campaignID int64, voltageTHD, currentTHD float64) error {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	result, err := db.ExecContext(ctx, finishCampaignSQL, toNullFloat(voltageTHD), toNullFloat(currentTHD), campaignID)
	if err != nil {
		return fmt.Errorf("updating campaign: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("campaign %d does not exist", campaignID)
	}

	return nil
}

func (s *SqliteStore) Campaign(ctx context.Context, id int64) (campaign *spectrum.Campaign, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectCampaignSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var data campaignData
	if err = stmt.QueryRowContext(ctx, id).Scan(
		&data.ID,
		&data.StartTime,
		&data.EndTime,
		&data.DeviceType,
		&data.DeviceID,
		&data.Config,
		&data.VoltageTHD,
		&data.CurrentTHD,
	); err != nil {
		err = fmt.Errorf("scanning campaign: %w", err)
		return
	}

	return fromCampaignData(&data), nil
}

// ReadIterations returns a reader over the stored iterations of a campaign in
// iteration order. The reader must be closed after use.
func (s *SqliteStore) ReadIterations(ctx context.Context, campaignID int64, opts ...ReaderOption) (*IterationReader, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newIterationReader(ctx, db, campaignID, opts...)
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
