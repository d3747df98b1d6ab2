package schedule

import (
	"time"

	"github.com/google/uuid"
)

// WorkingWindow is one recurring weekly interval during which a doctor
// accepts appointments. Times are stored as minutes after midnight.
// Windows are never edited in place: the owning doctor deletes and
// recreates them.
type WorkingWindow struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Weekday   time.Weekday
	StartMin  int
	EndMin    int
	CreatedAt time.Time
}
