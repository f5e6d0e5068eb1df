package view

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle      key.Binding
	Stop        key.Binding
	PrevSent    key.Binding
	NextSent    key.Binding
	PrevChapter key.Binding
	NextChapter key.Binding
	VolumeUp    key.Binding
	VolumeDown  key.Binding
	Slower      key.Binding
	Faster      key.Binding
	ResetRate   key.Binding
	Details     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.PrevSent, k.NextSent, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Stop, k.PrevSent, k.NextSent},
		{k.PrevChapter, k.NextChapter},
		{k.VolumeUp, k.VolumeDown, k.Slower, k.Faster, k.ResetRate},
		{k.Details, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Toggle: key.NewBinding(
		key.WithKeys(" ", "enter"),
		key.WithHelp("space", "play/pause"),
	),
	Stop: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "stop"),
	),
	PrevSent: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←", "previous sentence"),
	),
	NextSent: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→", "next sentence"),
	),
	PrevChapter: key.NewBinding(
		key.WithKeys("[", "p"),
		key.WithHelp("[", "previous chapter"),
	),
	NextChapter: key.NewBinding(
		key.WithKeys("]", "n"),
		key.WithHelp("]", "next chapter"),
	),
	VolumeUp: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "louder"),
	),
	VolumeDown: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "quieter"),
	),
	Slower: key.NewBinding(
		key.WithKeys(","),
		key.WithHelp(",", "slower"),
	),
	Faster: key.NewBinding(
		key.WithKeys("."),
		key.WithHelp(".", "faster"),
	),
	ResetRate: key.NewBinding(
		key.WithKeys("0"),
		key.WithHelp("0", "normal speed"),
	),
	Details: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "book details"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
