package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit      key.Binding
	NextTab   key.Binding
	PrevTab   key.Binding
	Shorts    key.Binding
	Long      key.Binding
	Cancel    key.Binding
	AddToCart key.Binding
	Remove    key.Binding
	Group     key.Binding
	Load      key.Binding
	CSV       key.Binding
	PDF       key.Binding
	Clear     key.Binding
	Mark      key.Binding
	Sort      key.Binding
	Debug     key.Binding
	Browser   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		NextTab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
		Shorts:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "crawl shorts")),
		Long:      key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "crawl long")),
		Cancel:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel")),
		AddToCart: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to cart")),
		Remove:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove")),
		Group:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "save group")),
		Load:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "load into cart")),
		CSV:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "csv")),
		PDF:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pdf")),
		Clear:     key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear")),
		Mark:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "mark")),
		Sort:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort")),
		Debug:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "debug")),
		Browser:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "launch browser")),
	}
}

// hints lists the bindings worth showing on a tab.
func (k keyMap) hints(t tab) []key.Binding {
	common := []key.Binding{k.Shorts, k.Long, k.Cancel}
	switch t {
	case tabResults:
		return append(common, k.Mark, k.AddToCart, k.Sort, k.Clear, k.NextTab, k.Quit)
	case tabCart:
		return append(common, k.Mark, k.Remove, k.Group, k.CSV, k.PDF, k.Sort, k.Clear, k.Quit)
	case tabGroups:
		return append(common, k.Load, k.Remove, k.CSV, k.PDF, k.Quit)
	}
	return append(common, k.Browser, k.NextTab, k.Debug, k.Quit)
}
