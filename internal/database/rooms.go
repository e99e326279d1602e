package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roombook/internal/models"
)

func (db *DB) CreateRoom(ctx context.Context, room *models.Room) error {
	query := `INSERT INTO rooms (name, location, capacity, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		room.Name,
		room.Location,
		room.Capacity,
		room.IsActive,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	room.ID = id
	room.CreatedAt = now
	room.UpdatedAt = now
	return nil
}

func (db *DB) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	query := `SELECT id, name, location, capacity, is_active, created_at, updated_at
              FROM rooms WHERE id = ?`
	room, err := scanRoom(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

// GetActiveRooms returns active rooms ordered by name, the order the
// schedule grid renders them in.
func (db *DB) GetActiveRooms(ctx context.Context) ([]models.Room, error) {
	query := `SELECT id, name, location, capacity, is_active, created_at, updated_at
              FROM rooms WHERE is_active = 1 ORDER BY name ASC`
	return db.queryRooms(ctx, query)
}

// GetAllRooms returns every room including deactivated ones, for admin views.
func (db *DB) GetAllRooms(ctx context.Context) ([]models.Room, error) {
	query := `SELECT id, name, location, capacity, is_active, created_at, updated_at
              FROM rooms ORDER BY name ASC`
	return db.queryRooms(ctx, query)
}

func (db *DB) queryRooms(ctx context.Context, query string) ([]models.Room, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, *room)
	}
	return rooms, rows.Err()
}

func (db *DB) UpdateRoom(ctx context.Context, room *models.Room) error {
	query := `UPDATE rooms SET name = ?, location = ?, capacity = ?, is_active = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query,
		room.Name, room.Location, room.Capacity, room.IsActive, time.Now(), room.ID)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateRoom hides a room from the booking UI while keeping its history.
func (db *DB) DeactivateRoom(ctx context.Context, id int64) error {
	query := `UPDATE rooms SET is_active = 0, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate room: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRoom(r rowScanner) (*models.Room, error) {
	var room models.Room
	err := r.Scan(
		&room.ID,
		&room.Name,
		&room.Location,
		&room.Capacity,
		&room.IsActive,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}
