package jobs

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, kind, status, user_name, video_name, tracking_type, click_count, source_path, data_path, output_path, frames_written, truncated, hold_frame, field_mode, scale_x, scale_y, error_message, created_at, updated_at, completed_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id            string
		kind          string
		status        string
		userName      sql.NullString
		videoName     sql.NullString
		trackingType  sql.NullString
		clickCount    int
		sourcePath    sql.NullString
		dataPath      sql.NullString
		outputPath    sql.NullString
		framesWritten int
		truncated     int
		holdFrame     int
		fieldMode     sql.NullString
		scaleX        float64
		scaleY        float64
		errorMessage  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
		completedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&kind,
		&status,
		&userName,
		&videoName,
		&trackingType,
		&clickCount,
		&sourcePath,
		&dataPath,
		&outputPath,
		&framesWritten,
		&truncated,
		&holdFrame,
		&fieldMode,
		&scaleX,
		&scaleY,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:            id,
		Kind:          Kind(kind),
		Status:        Status(status),
		UserName:      userName.String,
		VideoName:     videoName.String,
		TrackingType:  trackingType.String,
		ClickCount:    clickCount,
		SourcePath:    sourcePath.String,
		DataPath:      dataPath.String,
		OutputPath:    outputPath.String,
		FramesWritten: framesWritten,
		Truncated:     truncated != 0,
		HoldFrame:     holdFrame != 0,
		FieldMode:     fieldMode.String,
		ScaleX:        scaleX,
		ScaleY:        scaleY,
		ErrorMessage:  errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
