// ABOUTME: MIDI input listener with CC-to-parameter dispatch and learn mode
// ABOUTME: Normalizes controller values to [0,1] for the mapped parameter
package midi

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Listener watches one MIDI input port and routes control changes through
// the mapping store. While a learn target is armed, the next CC message
// binds to it instead of dispatching.
type Listener struct {
	store *Store
	port  drivers.In
	stop  func()

	mu          sync.Mutex
	learnTarget string
	onChange    func(param string, value float64)
	onLearned   func(param string, control Control)
}

// Ports lists the names of the available MIDI input ports.
func Ports() []string {
	ins := gomidi.GetInPorts()
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names
}

// NewListener opens the named input port, or the first available port when
// name is empty, and starts listening.
func NewListener(store *Store, name string) (*Listener, error) {
	var port drivers.In
	if name == "" {
		ins := gomidi.GetInPorts()
		if len(ins) == 0 {
			return nil, fmt.Errorf("midi: no input ports available")
		}
		port = ins[0]
	} else {
		found, err := gomidi.FindInPort(name)
		if err != nil {
			return nil, fmt.Errorf("midi: find port %q: %w", name, err)
		}
		port = found
	}

	l := &Listener{store: store, port: port}

	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
		var channel, cc, value uint8
		if msg.GetControlChange(&channel, &cc, &value) {
			l.handleCC(channel, cc, value)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("midi: listen on %q: %w", port.String(), err)
	}
	l.stop = stop

	log.Info().Str("port", port.String()).Msg("midi input listening")
	return l, nil
}

// OnParameterChange registers the callback for mapped CC movements. Values
// arrive normalized to [0,1].
func (l *Listener) OnParameterChange(cb func(param string, value float64)) {
	l.mu.Lock()
	l.onChange = cb
	l.mu.Unlock()
}

// OnLearned registers the callback fired when a learn target gets bound.
func (l *Listener) OnLearned(cb func(param string, control Control)) {
	l.mu.Lock()
	l.onLearned = cb
	l.mu.Unlock()
}

// BeginLearn arms learn mode: the next CC message binds to param.
func (l *Listener) BeginLearn(param string) {
	l.mu.Lock()
	l.learnTarget = param
	l.mu.Unlock()
}

// CancelLearn disarms learn mode.
func (l *Listener) CancelLearn() {
	l.mu.Lock()
	l.learnTarget = ""
	l.mu.Unlock()
}

// Learning returns the armed learn target, if any.
func (l *Listener) Learning() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.learnTarget, l.learnTarget != ""
}

// PortName returns the name of the open input port.
func (l *Listener) PortName() string {
	return l.port.String()
}

// Close stops listening. Safe to call twice.
func (l *Listener) Close() {
	if l.stop != nil {
		l.stop()
		l.stop = nil
	}
}

func (l *Listener) handleCC(channel, cc, value uint8) {
	l.mu.Lock()
	target := l.learnTarget
	l.learnTarget = ""
	onChange := l.onChange
	onLearned := l.onLearned
	l.mu.Unlock()

	if target != "" {
		if err := l.store.Assign(target, channel, cc); err != nil {
			log.Error().Err(err).Str("param", target).Msg("persist learned mapping")
			return
		}
		control, _ := l.store.Mapping(target)
		log.Info().Str("param", target).Uint8("channel", channel).Uint8("cc", cc).
			Msg("learned midi mapping")
		if onLearned != nil {
			onLearned(target, control)
		}
		return
	}

	param, ok := l.store.Lookup(channel, cc)
	if !ok {
		return
	}
	if onChange != nil {
		onChange(param, float64(value)/127.0)
	}
}
