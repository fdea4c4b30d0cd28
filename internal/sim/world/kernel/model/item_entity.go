package model

// ItemEntity is a dropped item stack in the world (e.g. extraction overflow).
// It is part of the world snapshot.
type ItemEntity struct {
	EntityID    string
	Pos         Vec3i
	Item        string
	Count       int
	CreatedTick uint64
}

func (e *ItemEntity) ID() string { return e.EntityID }
