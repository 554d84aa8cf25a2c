package driver

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
)

func TestQueryAdapters(t *testing.T) {
	tests := []struct {
		name  string
		query string
		mysql string
		pgsql string
	}{
		{
			"placeholders",
			"SELECT lesson_id FROM visits WHERE user_id = $1 AND course_id = $2",
			"SELECT lesson_id FROM visits WHERE user_id = ? AND course_id = ?",
			"SELECT lesson_id FROM visits WHERE user_id = $1 AND course_id = $2",
		},
		{
			"multi digit placeholder",
			"INSERT INTO visits VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)",
			"INSERT INTO visits VALUES (?,?,?,?,?,?,?,?,?,?)",
			"INSERT INTO visits VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)",
		},
		{
			"quoted identifiers",
			`SELECT "order" FROM "lesson_visits" WHERE id = $1`,
			"SELECT `order` FROM `lesson_visits` WHERE id = ?",
			`SELECT "order" FROM "lesson_visits" WHERE id = $1`,
		},
		{
			"whitespace",
			"\n\t\tSELECT started_at\n\t\tFROM visits\n\t\tWHERE user_id = $1\n\t",
			"SELECT started_at FROM visits WHERE user_id = ?",
			"SELECT started_at FROM visits WHERE user_id = $1",
		},
		{
			"no placeholders",
			"SELECT 1",
			"SELECT 1",
			"SELECT 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.mysql, mysqlAdapter(tt.query))
			assert.Equal(t, tt.pgsql, pgsqlAdapter(tt.query))
		})
	}
}

func TestGetDSN(t *testing.T) {
	assert.Equal(t, "gateway:secret@tcp(db:3306)/learning?parseTime=true", getDSN(&DBConfig{
		Host: "db", Port: 3306, Protocol: "tcp", User: "gateway", Password: "secret",
		Schema: "learning", Query: "parseTime=true",
	}))
	assert.Equal(t, "gateway:secret@db:5432/learning", getDSN(&DBConfig{
		Host: "db", Port: 5432, User: "gateway", Password: "secret", Schema: "learning",
	}))
}

func TestTxOptionAdapters(t *testing.T) {
	assert.Nil(t, mysqlTxOptionAdapter(nil))
	assert.Equal(t, pgx.TxOptions{}, pgTxOptionAdapter(nil))

	opts := &TxOptions{
		Isolation:      sql.LevelRepeatableRead,
		AccessMode:     AccessReadOnly,
		DeferrableMode: NotDeferrable,
	}
	assert.Equal(t, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, mysqlTxOptionAdapter(opts))
	assert.Equal(t, pgx.TxOptions{
		IsoLevel:       pgx.RepeatableRead,
		AccessMode:     pgx.ReadOnly,
		DeferrableMode: pgx.NotDeferrable,
	}, pgTxOptionAdapter(opts))
}

func TestLogQueryArgs(t *testing.T) {
	long := strings.Repeat("a", 70)
	args := logQueryArgs([]interface{}{"u1", []byte{0x01, 0xab}, long, 42})
	assert.Equal(t, []interface{}{
		"u1",
		"01ab",
		strings.Repeat("a", 64) + " (truncated 6 bytes)",
		42,
	}, args)
}
