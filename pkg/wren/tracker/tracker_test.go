package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrenbot/wren/pkg/wren/gateway"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func timePtr(t time.Time) *time.Time { return &t }

func msg(id, content string, ts time.Time) gateway.Message {
	return gateway.Message{
		ID:        id,
		ChannelID: "chan-1",
		GuildID:   "guild-1",
		Content:   content,
		Timestamp: ts,
		Author:    gateway.User{ID: "user-1", Username: "alice"},
	}
}

func TestApplyUpdate_MergesIntoTrackedTrigger(t *testing.T) {
	t.Parallel()
	tr := New(time.Hour, nil)

	now := time.Now()
	trigger := msg("m1", "!ping", now)
	trigger.TTS = true
	trigger.Attachments = []gateway.Attachment{{ID: "a1", Filename: "pic.png"}}
	tr.Record(trigger, msg("r1", "Pong!", now))

	edited := now.Add(time.Minute)
	got := tr.ApplyUpdate(gateway.MessageUpdate{
		ID:              "m1",
		ChannelID:       "chan-1",
		GuildID:         "guild-1",
		Content:         strPtr("!pong"),
		EditedTimestamp: timePtr(edited),
	})

	assert.Equal(t, "!pong", got.Content)
	require.NotNil(t, got.EditedTimestamp)
	assert.Equal(t, edited, *got.EditedTimestamp)

	// Fields absent from the partial payload keep their prior values.
	assert.True(t, got.TTS)
	assert.Equal(t, "user-1", got.Author.ID)
	assert.Len(t, got.Attachments, 1)
	assert.Equal(t, now, got.Timestamp)
}

func TestApplyUpdate_SynthesizesUntrackedTrigger(t *testing.T) {
	t.Parallel()
	tr := New(time.Hour, nil)

	got := tr.ApplyUpdate(gateway.MessageUpdate{
		ID:        "unknown",
		ChannelID: "chan-9",
		GuildID:   "guild-9",
		Content:   strPtr("!ping"),
	})

	assert.Equal(t, "unknown", got.ID)
	assert.Equal(t, "chan-9", got.ChannelID)
	assert.Equal(t, "!ping", got.Content)
	assert.Equal(t, 0, tr.Len(), "synthesized messages must not be recorded")
}

func TestApplyUpdate_PersistsMergeAcrossCalls(t *testing.T) {
	t.Parallel()
	tr := New(time.Hour, nil)

	now := time.Now()
	tr.Record(msg("m1", "!ping", now), msg("r1", "Pong!", now))

	tr.ApplyUpdate(gateway.MessageUpdate{ID: "m1", ChannelID: "chan-1", GuildID: "guild-1", Pinned: boolPtr(true)})
	got := tr.ApplyUpdate(gateway.MessageUpdate{ID: "m1", ChannelID: "chan-1", GuildID: "guild-1", Content: strPtr("!echo hi")})

	assert.True(t, got.Pinned, "earlier merges must persist in the stored copy")
	assert.Equal(t, "!echo hi", got.Content)
}

func TestResponse_ReturnsCopy(t *testing.T) {
	t.Parallel()
	tr := New(time.Hour, nil)

	now := time.Now()
	tr.Record(msg("m1", "!ping", now), msg("r1", "Pong!", now))

	resp, ok := tr.Response("m1")
	require.True(t, ok)
	assert.Equal(t, "r1", resp.ID)

	resp.Content = "mutated"
	again, ok := tr.Response("m1")
	require.True(t, ok)
	assert.Equal(t, "Pong!", again.Content)
}

func TestResponse_Missing(t *testing.T) {
	t.Parallel()
	tr := New(time.Hour, nil)
	_, ok := tr.Response("nope")
	assert.False(t, ok)
}

func TestSetResponse_OnlyIfEntrySurvives(t *testing.T) {
	t.Parallel()
	tr := New(time.Hour, nil)

	now := time.Now()
	tr.Record(msg("m1", "!ping", now), msg("r1", "Pong!", now))

	tr.SetResponse("m1", msg("r1", "Pong! (edited)", now))
	resp, ok := tr.Response("m1")
	require.True(t, ok)
	assert.Equal(t, "Pong! (edited)", resp.Content)

	// Setting a response for a purged or never-tracked trigger is a no-op.
	tr.SetResponse("gone", msg("r2", "orphan", now))
	assert.Equal(t, 1, tr.Len())
}

func TestRemove_ReturnsResponseAndDropsEntry(t *testing.T) {
	t.Parallel()
	tr := New(time.Hour, nil)

	now := time.Now()
	tr.Record(msg("m1", "!ping", now), msg("r1", "Pong!", now))
	tr.Record(msg("m2", "!echo hi", now), msg("r2", "hi", now))

	resp, ok := tr.Remove("m1")
	require.True(t, ok)
	assert.Equal(t, "r1", resp.ID)
	assert.Equal(t, 1, tr.Len())

	_, ok = tr.Remove("m1")
	assert.False(t, ok)
}

func TestRecord_NoDeduplication(t *testing.T) {
	t.Parallel()
	tr := New(time.Hour, nil)

	now := time.Now()
	tr.Record(msg("m1", "!ping", now), msg("r1", "Pong!", now))
	tr.Record(msg("m1", "!ping", now), msg("r2", "Pong again!", now))

	assert.Equal(t, 2, tr.Len())
	resp, ok := tr.Response("m1")
	require.True(t, ok)
	assert.Equal(t, "r1", resp.ID, "lookups follow insertion order")
}

func TestPurge(t *testing.T) {
	now := time.Now()
	maxAge := time.Hour

	tests := []struct {
		name      string
		timestamp time.Time
		edited    *time.Time
		kept      bool
	}{
		{
			name:      "fresh entry survives",
			timestamp: now.Add(-time.Minute),
			kept:      true,
		},
		{
			name:      "expired entry dropped",
			timestamp: now.Add(-2 * time.Hour),
			kept:      false,
		},
		{
			name:      "age exactly maxAge dropped",
			timestamp: now.Add(-maxAge),
			kept:      false,
		},
		{
			name:      "edit timestamp refreshes age",
			timestamp: now.Add(-2 * time.Hour),
			edited:    timePtr(now.Add(-time.Minute)),
			kept:      true,
		},
		{
			name:      "negative age counts as expired",
			timestamp: now.Add(time.Hour),
			kept:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(maxAge, nil)
			trigger := msg("m1", "!ping", tt.timestamp)
			trigger.EditedTimestamp = tt.edited
			tr.Record(trigger, msg("r1", "Pong!", tt.timestamp))

			tr.Purge(now)

			if tt.kept {
				assert.Equal(t, 1, tr.Len())
			} else {
				assert.Equal(t, 0, tr.Len())
			}
		})
	}
}
