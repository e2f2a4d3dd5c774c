package shared

import "testing"

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"from parenthetical", `Song (From "Movie")`, "Song"},
		{"dash from", `Song - From "Movie"`, "Song"},
		{"feat clause", "Song (Feat. Someone)", "Song"},
		{"case insensitive", `Song (from "Movie")`, "Song"},
		{"no clause", "Plain Song", "Plain Song"},
		{"remix left alone", "Song (Remix)", "Song (Remix)"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanTitle(tt.in); got != tt.want {
				t.Errorf("CleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if got := CleanTitle(CleanTitle(tt.in)); got != tt.want {
				t.Errorf("CleanTitle is not idempotent for %q: %q", tt.in, got)
			}
		})
	}
}

func TestCleanAlbum(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"from parenthetical", `Hits (From "Movie")`, "Movie"},
		{"dash from", `Hits - From "Movie"`, "Movie"},
		{"case insensitive", `Hits (FROM "Movie")`, "Movie"},
		{"no clause", "Greatest Hits", "Greatest Hits"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanAlbum(tt.in); got != tt.want {
				t.Errorf("CleanAlbum(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if got := CleanAlbum(CleanAlbum(tt.in)); got != tt.want {
				t.Errorf("CleanAlbum is not idempotent for %q: %q", tt.in, got)
			}
		})
	}
}

func TestFoldAlbum(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"soundtrack suffix", "Movie Soundtrack (Original Motion Picture Soundtrack)", "Movie Soundtrack"},
		{"deluxe edition", "Album (Deluxe Edition)", "Album"},
		{"noise without parens", "Album Deluxe Edition", "Album"},
		{"ampersand", "Salt & Pepper", "Salt And Pepper"},
		{"dash removed", "Side-A", "SideA"},
		{"punctuation collapsed", "Hello,   World!!", "Hello World"},
		{"unicode letters kept", "Café Tacvba", "Café Tacvba"},
		{"only noise", "(Deluxe Edition)", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FoldAlbum(tt.in); got != tt.want {
				t.Errorf("FoldAlbum(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFoldAlbumIdempotent(t *testing.T) {
	inputs := []string{
		"Movie Soundtrack (Original Motion Picture Soundtrack)",
		"Original (Motion Picture Soundtrack)",
		"Deluxe (Deluxe Edition) Edition",
		"A & B - (C)",
		"  ((  ))  ",
		"Original Motion Picture Soundtrack Deluxe Edition",
		"日本語 & 한국어",
	}

	for _, in := range inputs {
		once := FoldAlbum(in)
		if twice := FoldAlbum(once); twice != once {
			t.Errorf("FoldAlbum not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}
