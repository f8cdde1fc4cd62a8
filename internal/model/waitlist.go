package model

import "time"

// WaitlistEntry queues a student for a spot in a full class.  Entries
// for one class form a dense 1-based priority sequence: the head has
// priority 1 and every removal compacts the remaining priorities so no
// gaps appear.  That invariant is owned by the booking service; rows
// are never renumbered anywhere else.
//
// Fields:
//  ID        – primary key identifier.
//  ClassID   – class the student is waiting for.
//  UserID    – waiting student.
//  FrameSize – frame size requested when the class filled up.
//  Priority  – 1-based position in the queue.
//  CreatedAt – when the entry was enqueued.
type WaitlistEntry struct {
	ID        uint64    // waitlist_entries.id
	ClassID   uint64    // waitlist_entries.class_id
	UserID    uint64    // waitlist_entries.user_id
	FrameSize string    // waitlist_entries.frame_size
	Priority  uint32    // waitlist_entries.priority
	CreatedAt time.Time // waitlist_entries.created_at
}
