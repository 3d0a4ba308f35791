package notebook

import "testing"

func TestSelectDeduplicates(t *testing.T) {
	c := NewContext()
	c.Open("nb-1")
	c.Select([]string{"a", "", "b", "a"})

	got := c.SelectedSources()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("selected = %v", got)
	}

	got[0] = "mutated"
	if c.SelectedSources()[0] != "a" {
		t.Fatal("SelectedSources must return a copy")
	}
}

func TestOpenClearsSelection(t *testing.T) {
	c := NewContext()
	c.Open("nb-1")
	c.Select([]string{"a"})
	c.Open("nb-2")

	if c.NotebookID() != "nb-2" {
		t.Fatalf("notebook = %q", c.NotebookID())
	}
	if len(c.SelectedSources()) != 0 {
		t.Fatal("selection should be reset when switching notebooks")
	}
}
