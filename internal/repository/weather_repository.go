// Package repository provides data access implementations
package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/abelzeko/weather-bot/internal/entities"
)

// WeatherRepository defines the interface for forecast and alarm persistence operations
type WeatherRepository interface {
	SaveWeatherRecords(records []entities.WeatherRecord) error
	GetForecastByDistrict(district string) ([]entities.WeatherRecord, error)
	GetUniqueProvinces() ([]string, error)
	GetLastUpdateTime() (time.Time, error)
	DeleteForecastsBefore(date civil.Date) (int64, error)
	SaveAlarms(alarms []entities.Alarm) error
	GetAlarms(location string) ([]entities.Alarm, error)
	Close() error
}

// SQLiteWeatherRepository implements WeatherRepository using SQLite
type SQLiteWeatherRepository struct {
	db     *sql.DB
	DBPath string
	logger *zap.Logger
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS weather_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		province TEXT NOT NULL,
		province_url TEXT NOT NULL,
		city TEXT NOT NULL,
		district TEXT NOT NULL,
		district_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		update_time TEXT NOT NULL,
		day_event TEXT,
		day_wind_dir TEXT,
		day_wind_scale TEXT,
		temp_max INTEGER,
		night_event TEXT NOT NULL,
		night_wind_dir TEXT NOT NULL,
		night_wind_scale TEXT NOT NULL,
		temp_min INTEGER NOT NULL,
		UNIQUE(district_id, date)
	);
	CREATE INDEX IF NOT EXISTS idx_district ON weather_records(district);
	CREATE INDEX IF NOT EXISTS idx_date ON weather_records(date);

	CREATE TABLE IF NOT EXISTS alarms (
		short_url TEXT PRIMARY KEY,
		location TEXT NOT NULL,
		lng_e REAL NOT NULL,
		lat_n REAL NOT NULL,
		location_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		level INTEGER NOT NULL,
		time TEXT NOT NULL
	);`

// NewSQLiteWeatherRepository creates and initializes a new SQLite repository
func NewSQLiteWeatherRepository(dbPath string, logger *zap.Logger) (*SQLiteWeatherRepository, error) {
	if dbPath == "" {
		dbPath = filepath.Join("data", "weather.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Info("Opening database", zap.String("path", dbPath))
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteWeatherRepository{
		db:     db,
		DBPath: dbPath,
		logger: logger,
	}, nil
}

// Close closes the database connection
func (r *SQLiteWeatherRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveWeatherRecords upserts forecast records keyed by district id and date
func (r *SQLiteWeatherRepository) SaveWeatherRecords(records []entities.WeatherRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO weather_records(province, province_url, city, district, district_id, date, update_time,
			day_event, day_wind_dir, day_wind_scale, temp_max,
			night_event, night_wind_dir, night_wind_scale, temp_min)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(district_id, date) DO UPDATE SET
		province=excluded.province,
		province_url=excluded.province_url,
		city=excluded.city,
		district=excluded.district,
		update_time=excluded.update_time,
		day_event=excluded.day_event,
		day_wind_dir=excluded.day_wind_dir,
		day_wind_scale=excluded.day_wind_scale,
		temp_max=excluded.temp_max,
		night_event=excluded.night_event,
		night_wind_dir=excluded.night_wind_dir,
		night_wind_scale=excluded.night_wind_scale,
		temp_min=excluded.temp_min
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var dayEvent, dayWindDir, dayWindScale sql.NullString
		var tempMax sql.NullInt64
		if rec.DayWeather != nil {
			dayEvent = sql.NullString{String: rec.DayWeather.Event, Valid: true}
			dayWindDir = sql.NullString{String: rec.DayWeather.WindDir, Valid: true}
			dayWindScale = sql.NullString{String: rec.DayWeather.WindScale, Valid: true}
		}
		if rec.TempMax != nil {
			tempMax = sql.NullInt64{Int64: int64(*rec.TempMax), Valid: true}
		}

		_, err := stmt.Exec(
			rec.Province,
			rec.ProvinceURL,
			rec.City,
			rec.District,
			rec.DistrictID,
			rec.Date.String(),
			rec.UpdateTime.Format(time.RFC3339),
			dayEvent,
			dayWindDir,
			dayWindScale,
			tempMax,
			rec.NightWeather.Event,
			rec.NightWeather.WindDir,
			rec.NightWeather.WindScale,
			rec.TempMin,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert forecast for %s on %s: %w", rec.District, rec.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("Saved weather records", zap.Int("count", len(records)))
	return nil
}

// GetForecastByDistrict retrieves the stored forecast days of every district with that name
func (r *SQLiteWeatherRepository) GetForecastByDistrict(district string) ([]entities.WeatherRecord, error) {
	query := `
		SELECT province, province_url, city, district, district_id, date, update_time,
			day_event, day_wind_dir, day_wind_scale, temp_max,
			night_event, night_wind_dir, night_wind_scale, temp_min
		FROM weather_records
		WHERE district = ?
		ORDER BY province, city, date`

	rows, err := r.db.Query(query, district)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast for %s: %w", district, err)
	}
	defer rows.Close()

	var result []entities.WeatherRecord
	for rows.Next() {
		rec, err := scanWeatherRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return result, nil
}

func scanWeatherRecord(rows *sql.Rows) (entities.WeatherRecord, error) {
	var rec entities.WeatherRecord
	var date, updateTime string
	var dayEvent, dayWindDir, dayWindScale sql.NullString
	var tempMax sql.NullInt64
	if err := rows.Scan(
		&rec.Province,
		&rec.ProvinceURL,
		&rec.City,
		&rec.District,
		&rec.DistrictID,
		&date,
		&updateTime,
		&dayEvent,
		&dayWindDir,
		&dayWindScale,
		&tempMax,
		&rec.NightWeather.Event,
		&rec.NightWeather.WindDir,
		&rec.NightWeather.WindScale,
		&rec.TempMin,
	); err != nil {
		return rec, fmt.Errorf("failed to scan row: %w", err)
	}

	var err error
	if rec.Date, err = civil.ParseDate(date); err != nil {
		return rec, fmt.Errorf("failed to parse date '%s': %w", date, err)
	}
	if rec.UpdateTime, err = parseTimestamp(updateTime); err != nil {
		return rec, err
	}
	if dayEvent.Valid {
		rec.DayWeather = &entities.WeatherInfo{
			Event:     dayEvent.String,
			WindDir:   dayWindDir.String,
			WindScale: dayWindScale.String,
		}
	}
	if tempMax.Valid {
		t := int(tempMax.Int64)
		rec.TempMax = &t
	}
	return rec, nil
}

// GetUniqueProvinces returns a list of all provinces with stored forecasts
func (r *SQLiteWeatherRepository) GetUniqueProvinces() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT province FROM weather_records ORDER BY province`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique provinces: %w", err)
	}
	defer rows.Close()

	var provinces []string
	for rows.Next() {
		var province string
		if err := rows.Scan(&province); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		provinces = append(provinces, province)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return provinces, nil
}

// GetLastUpdateTime returns the most recent portal update time in the database
func (r *SQLiteWeatherRepository) GetLastUpdateTime() (time.Time, error) {
	var timestampStr sql.NullString
	err := r.db.QueryRow("SELECT MAX(update_time) FROM weather_records").Scan(&timestampStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last update time: %w", err)
	}

	// No rows yet
	if !timestampStr.Valid || timestampStr.String == "" {
		return time.Time{}, nil
	}
	return parseTimestamp(timestampStr.String)
}

// DeleteForecastsBefore drops forecast days older than date
func (r *SQLiteWeatherRepository) DeleteForecastsBefore(date civil.Date) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM weather_records WHERE date < ?`, date.String())
	if err != nil {
		return 0, fmt.Errorf("failed to delete forecasts before %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted forecasts: %w", err)
	}
	return n, nil
}

// SaveAlarms replaces the stored alarms with the currently active ones
func (r *SQLiteWeatherRepository) SaveAlarms(alarms []entities.Alarm) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM alarms`); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear alarms: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO alarms(short_url, location, lng_e, lat_n, location_id, kind, level, time)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(short_url) DO NOTHING
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, a := range alarms {
		_, err := stmt.Exec(
			a.ShortURL,
			a.Location,
			a.LngE,
			a.LatN,
			a.LocationID,
			string(a.Kind),
			int(a.Level),
			a.Time.Format(time.RFC3339),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert alarm %s: %w", a.ShortURL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("Saved alarms", zap.Int("count", len(alarms)))
	return nil
}

// GetAlarms returns the stored alarms whose location contains location,
// newest first. An empty location matches every alarm.
func (r *SQLiteWeatherRepository) GetAlarms(location string) ([]entities.Alarm, error) {
	query := `
		SELECT short_url, location, lng_e, lat_n, location_id, kind, level, time
		FROM alarms
		WHERE ? = '' OR instr(location, ?) > 0
		ORDER BY time DESC, short_url`

	rows, err := r.db.Query(query, location, location)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarms for '%s': %w", location, err)
	}
	defer rows.Close()

	var result []entities.Alarm
	for rows.Next() {
		var a entities.Alarm
		var kind, issued string
		var level int
		if err := rows.Scan(
			&a.ShortURL,
			&a.Location,
			&a.LngE,
			&a.LatN,
			&a.LocationID,
			&kind,
			&level,
			&issued,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		a.Kind = entities.AlarmKind(kind)
		a.Level = entities.AlarmLevel(level)
		if a.Time, err = parseTimestamp(issued); err != nil {
			return nil, err
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return result, nil
}

// parseTimestamp reads a stored RFC3339 timestamp back in the portal's zone
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", s, err)
	}
	return t.In(entities.ChinaTimezone), nil
}
