package node

import "github.com/RuneMirror/RuneMirror/internal/monitor"

// Sources - что показывает монитор про лидера.
func (l *Leader) Sources() monitor.Sources {
	return monitor.Sources{
		Clock:   l.World,
		Session: l.Capture,
		Targets: l.Broadcaster,
	}
}

// Sources - что показывает монитор про ведомого.
func (f *Follower) Sources() monitor.Sources {
	return monitor.Sources{
		Clock:    f.World,
		Listener: f.Listener,
		Receiver: f.Receiver,
	}
}
