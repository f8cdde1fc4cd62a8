package model

import "time"

// Class status values.  A class is SCHEDULED while bookable, flips to
// FULL when its overall capacity is exhausted and back to SCHEDULED
// when a spot frees up.  CANCELLED and COMPLETED are terminal.
const (
	ClassScheduled = "SCHEDULED"
	ClassFull      = "FULL"
	ClassCancelled = "CANCELLED"
	ClassCompleted = "COMPLETED"
)

// Class represents a scheduled studio session taught by an instructor.
// Besides an overall capacity it declares one sub-capacity per frame
// size; admission is evaluated strictly per size, so a class can have
// free MEDIUM spots while SMALL is exhausted.
//
// Fields:
//  ID             – primary key identifier.
//  InstructorID   – user ID of the instructor who owns the class.
//  Title          – display name of the session.
//  StartsAt       – when the class begins.
//  EndsAt         – when the class ends (must be after StartsAt).
//  Capacity       – overall number of spots; drives the FULL flip.
//  SmallCapacity  – spots reserved for SMALL frames.
//  MediumCapacity – spots reserved for MEDIUM frames.
//  LargeCapacity  – spots reserved for LARGE frames.
//  Status         – current state (SCHEDULED, FULL, CANCELLED, COMPLETED).
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Class struct {
	ID             uint64    // classes.id
	InstructorID   uint64    // classes.instructor_id
	Title          string    // classes.title
	StartsAt       time.Time // classes.starts_at
	EndsAt         time.Time // classes.ends_at
	Capacity       uint32    // classes.capacity
	SmallCapacity  uint32    // classes.small_capacity
	MediumCapacity uint32    // classes.medium_capacity
	LargeCapacity  uint32    // classes.large_capacity
	Status         string    // classes.status
	CreatedAt      time.Time // classes.created_at
	UpdatedAt      time.Time // classes.updated_at
}
