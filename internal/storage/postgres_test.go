package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/planner/internal/core"
)

func TestConvert_Text(t *testing.T) {
	assert.False(t, toPgText("").Valid)
	assert.False(t, toPgText("   ").Valid)
	assert.Equal(t, "x", fromPgText(toPgText("x")))
	assert.Equal(t, "", fromPgText(toPgText("")))
}

func TestConvert_Float8(t *testing.T) {
	assert.False(t, toPgFloat8(nil).Valid)
	assert.Nil(t, fromPgFloat8(toPgFloat8(nil)))

	v := 2.5
	got := fromPgFloat8(toPgFloat8(&v))
	if assert.NotNil(t, got) {
		assert.Equal(t, 2.5, *got)
	}
}

func TestConvert_DateDropsTime(t *testing.T) {
	ts := time.Date(2024, 7, 4, 18, 30, 0, 0, time.FixedZone("X", 3600))
	d := toPgDate(&ts)
	assert.True(t, d.Valid)
	assert.Equal(t, time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC), d.Time)
	assert.Nil(t, fromPgDate(toPgDate(nil)))
}

func TestConvert_Timestamptz(t *testing.T) {
	assert.False(t, toPgTimestamptz(nil).Valid)
	zero := time.Time{}
	assert.False(t, toPgTimestamptz(&zero).Valid)

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got := fromPgTimestamptz(toPgTimestamptz(&now))
	if assert.NotNil(t, got) {
		assert.True(t, now.Equal(*got))
	}
}

func TestActivityQuery(t *testing.T) {
	tests := []struct {
		name      string
		filter    core.ActivityFilter
		wantWhere string
		wantTail  string
		wantArgs  int
	}{
		{
			name:      "no filter",
			filter:    core.ActivityFilter{},
			wantWhere: "",
			wantTail:  "LIMIT $1",
			wantArgs:  1,
		},
		{
			name:      "project and action",
			filter:    core.ActivityFilter{ProjectID: "p", Action: core.ActionImport, Limit: 5},
			wantWhere: "WHERE project_id = $1 AND action = $2",
			wantTail:  "LIMIT $3",
			wantArgs:  3,
		},
		{
			name:      "time window with offset",
			filter:    core.ActivityFilter{Since: time.Unix(0, 0), Until: time.Unix(100, 0), Offset: 20},
			wantWhere: "WHERE created_at >= $1 AND created_at < $2",
			wantTail:  "LIMIT $3 OFFSET $4",
			wantArgs:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := activityQuery(tt.filter, pgBind)
			if tt.wantWhere != "" {
				assert.Contains(t, query, tt.wantWhere)
			} else {
				assert.NotContains(t, query, "WHERE")
			}
			assert.Contains(t, query, tt.wantTail)
			assert.Len(t, args, tt.wantArgs)
		})
	}
}

func TestActivityQuery_DefaultLimit(t *testing.T) {
	_, args := activityQuery(core.ActivityFilter{}, pgBind)
	assert.Equal(t, core.DefaultActivityLimit, args[len(args)-1])
}

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"projects", "tasks", "subtasks", "task_states", "collaborators", "activity_log"} {
		assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, schemaSQL, "ALTER TABLE subtasks ADD COLUMN IF NOT EXISTS position")
}
