package world

// Scheduler runs repeating tasks on tick boundaries. It is driven by Loop and,
// like the rest of the world, is not safe for concurrent use.
type Scheduler struct {
	now     uint64
	tasks   []*task
	pending []*task
	running bool
}

type task struct {
	interval  uint64
	next      uint64
	fn        func(tick uint64)
	cancelled bool
}

func NewScheduler() *Scheduler { return &Scheduler{} }

func (s *Scheduler) Now() uint64 { return s.now }

// StartAt moves the clock to tick, shifting pending due ticks with it. Used
// when a world resumes from a snapshot.
func (s *Scheduler) StartAt(tick uint64) {
	for _, t := range s.tasks {
		t.next = tick + (t.next - s.now)
	}
	for _, t := range s.pending {
		t.next = tick + (t.next - s.now)
	}
	s.now = tick
}

// Every runs fn every interval ticks, first at Now()+interval. Tasks added
// while a tick is running start on a later tick. The returned func cancels
// the task; it is safe to call more than once and from inside fn.
func (s *Scheduler) Every(interval int, fn func(tick uint64)) (cancel func()) {
	if interval < 1 {
		interval = 1
	}
	t := &task{interval: uint64(interval), next: s.now + uint64(interval), fn: fn}
	if s.running {
		s.pending = append(s.pending, t)
	} else {
		s.tasks = append(s.tasks, t)
	}
	return func() { t.cancelled = true }
}

// Len reports live tasks, including ones that have not started yet.
func (s *Scheduler) Len() int {
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled {
			n++
		}
	}
	for _, t := range s.pending {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Advance moves the clock one tick and runs every due task in creation order.
func (s *Scheduler) Advance() uint64 {
	s.now++
	if len(s.pending) > 0 {
		s.tasks = append(s.tasks, s.pending...)
		s.pending = nil
	}

	s.running = true
	for _, t := range s.tasks {
		if t.cancelled || s.now < t.next {
			continue
		}
		t.next = s.now + t.interval
		t.fn(s.now)
	}
	s.running = false

	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live
	return s.now
}
