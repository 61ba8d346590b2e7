package model

// StemMeta is the per-stem record of a multi-track source.
type StemMeta struct {
	Name       string `yaml:"-" json:"name"`
	InstClass  string `yaml:"inst_class" json:"inst_class"`
	IsDrum     bool   `yaml:"is_drum" json:"is_drum"`
	PluginName string `yaml:"plugin_name" json:"plugin_name"`
	ProgramNum int    `yaml:"program_num" json:"program_num"`
	MidiSaved  bool   `yaml:"midi_saved" json:"-"`
}

type Track struct {
	ID        string
	InstClass string
	IsDrum    bool
	// Program is the first program change seen, -1 if there was none.
	Program int
	Meta    StemMeta
	Notes   []NoteEvent
	Pedals  []PedalInterval
}

// Item is one entry of a dataset manifest. Paths are absolute or relative
// to the dataset root.
type Item struct {
	Name      string `json:"name"`
	AudioPath string `json:"audio_path"`
	MidiPath  string `json:"midi_path"`
	Split     string `json:"split"`
}

type ItemNumToName = map[uint32]string
