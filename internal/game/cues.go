package game

import "sync"

// CueSink receives the UI side effects the engine emits alongside state
// transitions: a short click on selection, a success or failure cue on
// submission, and a finish cue on completion. Playback is a presentational
// concern; the engine only signals.
type CueSink interface {
	ButtonClick()
	CorrectAnswer()
	WrongAnswer()
	FinishGame()
}

// NoopCues discards all cues.
type NoopCues struct{}

func (NoopCues) ButtonClick()   {}
func (NoopCues) CorrectAnswer() {}
func (NoopCues) WrongAnswer()   {}
func (NoopCues) FinishGame()    {}

// Cue names a single audio cue.
type Cue string

const (
	CueButtonClick   Cue = "button_click"
	CueCorrectAnswer Cue = "correct_answer"
	CueWrongAnswer   Cue = "wrong_answer"
	CueFinishGame    Cue = "finish_game"
)

// CueDispatcher fans cues out to subscribed transports. Emission never
// blocks a state transition: a subscriber that cannot keep up loses cues,
// which only costs it a sound effect.
type CueDispatcher struct {
	mu   sync.Mutex
	subs map[chan Cue]struct{}
}

func NewCueDispatcher() *CueDispatcher {
	return &CueDispatcher{subs: make(map[chan Cue]struct{})}
}

func (d *CueDispatcher) Subscribe() chan Cue {
	ch := make(chan Cue, 8)
	d.mu.Lock()
	d.subs[ch] = struct{}{}
	d.mu.Unlock()
	return ch
}

func (d *CueDispatcher) Unsubscribe(ch chan Cue) {
	d.mu.Lock()
	if _, ok := d.subs[ch]; ok {
		delete(d.subs, ch)
		close(ch)
	}
	d.mu.Unlock()
}

func (d *CueDispatcher) emit(cue Cue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for ch := range d.subs {
		select {
		case ch <- cue:
		default:
		}
	}
}

func (d *CueDispatcher) ButtonClick()   { d.emit(CueButtonClick) }
func (d *CueDispatcher) CorrectAnswer() { d.emit(CueCorrectAnswer) }
func (d *CueDispatcher) WrongAnswer()   { d.emit(CueWrongAnswer) }
func (d *CueDispatcher) FinishGame()    { d.emit(CueFinishGame) }
