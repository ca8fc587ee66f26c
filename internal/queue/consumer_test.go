package queue

import (
    "encoding/json"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestFormatEvent(t *testing.T) {
    ev := NewBedEvent(EventBedStatusChanged, "WARD-A", "n-1")
    ev.BedID = "A-3"
    ev.Status = "Broken"
    ev.PreviousStatus = "Functional"

    line := FormatEvent(ev)
    assert.True(t, strings.HasSuffix(line, "\n"))
    assert.Contains(t, line, "bed.status_changed")
    assert.Contains(t, line, "bed=A-3")
    assert.Contains(t, line, "status=Functional->Broken")
    assert.Contains(t, line, "event_id="+ev.EventID)
    assert.NotContains(t, line, "occupied=")
}

func TestAppendEventWritesAuditLog(t *testing.T) {
    dir := filepath.Join(t.TempDir(), "logs")
    occupied := 12
    ev := NewBedEvent(EventCensusRecorded, "GEN", "wh-2")
    ev.Occupied = &occupied
    body, err := json.Marshal(ev)
    require.NoError(t, err)

    require.NoError(t, appendEvent(dir, body))
    require.NoError(t, appendEvent(dir, body))

    data, err := os.ReadFile(filepath.Join(dir, "bed-events.log"))
    require.NoError(t, err)
    lines := strings.Split(strings.TrimSpace(string(data)), "\n")
    assert.Len(t, lines, 2)
    assert.Contains(t, lines[0], "occupied=12")

    assert.Error(t, appendEvent(dir, []byte("not json")))
}

func TestNewBedEventIDsAreUnique(t *testing.T) {
    a := NewBedEvent(EventBedRegistered, "ETU", "x")
    b := NewBedEvent(EventBedRegistered, "ETU", "x")
    assert.NotEqual(t, a.EventID, b.EventID)
    assert.NotEmpty(t, a.OccurredAt)
}
