package internal

// Role identifies the author of a turn
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Usage holds token counters reported by the provider for one exchange
type Usage struct {
	PromptTokens     int `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`
}

// Turn is one message in a conversation
type Turn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
	Usage   *Usage `json:"usage,omitempty" yaml:"usage,omitempty"`
}

// Entry is one element of a conversation history: either a user/model pair
// or an out-of-band system note that is never sent to the model.
type Entry struct {
	User  *Turn  `json:"user,omitempty" yaml:"user,omitempty"`
	Model *Turn  `json:"model,omitempty" yaml:"model,omitempty"`
	Note  string `json:"note,omitempty" yaml:"note,omitempty"`
}

// NewPair creates a settled user/model pair
func NewPair(question, answer string) Entry {
	return Entry{
		User:  &Turn{Role: RoleUser, Content: question},
		Model: &Turn{Role: RoleModel, Content: answer},
	}
}

// NewNote creates a system note entry
func NewNote(content string) Entry {
	return Entry{Note: content}
}

// IsPair reports whether the entry is a user/model pair
func (e Entry) IsPair() bool {
	return e.User != nil
}

// IsNote reports whether the entry is a system note
func (e Entry) IsNote() bool {
	return e.User == nil && e.Note != ""
}

// Clone returns a deep copy of the entry
func (e Entry) Clone() Entry {
	out := Entry{Note: e.Note}
	if e.User != nil {
		u := *e.User
		out.User = &u
	}
	if e.Model != nil {
		m := *e.Model
		if m.Usage != nil {
			usage := *m.Usage
			m.Usage = &usage
		}
		out.Model = &m
	}
	return out
}

// Turns flattens entries into the user/model turn sequence, skipping notes
// and pairs whose model turn has not arrived yet.
func Turns(entries []Entry) []Turn {
	turns := make([]Turn, 0, len(entries)*2)
	for _, e := range entries {
		if !e.IsPair() {
			continue
		}
		turns = append(turns, *e.User)
		if e.Model != nil {
			turns = append(turns, *e.Model)
		}
	}
	return turns
}

// Pairs returns only the user/model pairs of entries
func Pairs(entries []Entry) []Entry {
	pairs := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsPair() {
			pairs = append(pairs, e)
		}
	}
	return pairs
}
