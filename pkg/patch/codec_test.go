package patch

import (
	"errors"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	codec := DefaultCodec()
	paths := []string{
		"README",
		"main.go",
		"src/app.py",
		"a/b/c",
		"deeply/nested/tree/of/many/levels/file-name.txt",
		"docs/v1-2/index.md",
		"_private/config",
		"pkg/last_",
		"with_single/under_score",
	}

	for _, p := range paths {
		for _, kind := range []Kind{KindReplacement, KindNote} {
			name, err := codec.Encode(p, kind)
			if err != nil {
				t.Fatalf("Encode(%q, %s) returned error: %v", p, kind, err)
			}
			gotKind, got, err := codec.Decode(name)
			if err != nil {
				t.Fatalf("Decode(%q) returned error: %v", name, err)
			}
			if gotKind != kind || got != p {
				t.Fatalf("round trip mismatch: %q -> %q -> (%s, %q)", p, name, gotKind, got)
			}
		}
	}
}

func TestCodecEncodeFormat(t *testing.T) {
	t.Parallel()

	codec := DefaultCodec()
	name, err := codec.Encode("a/b/c", KindReplacement)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if name != "a__b__c.patch" {
		t.Fatalf("unexpected name %q", name)
	}

	note, err := codec.Encode("a/b/c", KindNote)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if note != "a__b__c.txt" {
		t.Fatalf("unexpected note name %q", note)
	}
}

func TestCodecRejectsAmbiguousPaths(t *testing.T) {
	t.Parallel()

	codec := DefaultCodec()
	tests := map[string]string{
		"segment equal to separator":   "a/__/b",
		"segment containing separator": "a/x__y/b",
		"segment ending in underscore": "a_/b",
		"segment starting underscore":  "a/_b",
	}
	for name, p := range tests {
		p := p
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := codec.Encode(p, KindReplacement); !errors.Is(err, ErrAmbiguousPath) {
				t.Fatalf("expected ErrAmbiguousPath for %q, got %v", p, err)
			}
		})
	}
}

func TestCodecCollidingNamesAreRefusedAtEncode(t *testing.T) {
	t.Parallel()

	// "a_/b" and "a/_b" would both flatten to "a___b"; Encode must accept
	// at most one spelling so no two accepted paths share a name.
	codec := DefaultCodec()
	_, errLeft := codec.Encode("a_/b", KindReplacement)
	_, errRight := codec.Encode("a/_b", KindReplacement)
	if errLeft == nil || errRight == nil {
		t.Fatalf("expected both colliding spellings to be refused: %v / %v", errLeft, errRight)
	}
}

func TestCodecRejectsUnsafePaths(t *testing.T) {
	t.Parallel()

	codec := DefaultCodec()
	for _, p := range []string{"", "/etc/passwd", "../outside", "a/../b", "a//b", "./a", "a/", `a\b`} {
		if _, err := codec.Encode(p, KindReplacement); !errors.Is(err, ErrUnsafePath) {
			t.Fatalf("expected ErrUnsafePath for %q, got %v", p, err)
		}
	}
}

func TestCodecDecodeErrors(t *testing.T) {
	t.Parallel()

	codec := DefaultCodec()
	if _, _, err := codec.Decode("a__b.orig"); !errors.Is(err, ErrUnrecognizedSuffix) {
		t.Fatalf("expected ErrUnrecognizedSuffix, got %v", err)
	}
	if _, _, err := codec.Decode(".patch"); !errors.Is(err, ErrUnrecognizedSuffix) {
		t.Fatalf("expected bare suffix to be unrecognized, got %v", err)
	}
	// A segment that is literally the separator token decodes to empty segments.
	if _, _, err := codec.Decode("a______b.patch"); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath for separator-token segment, got %v", err)
	}
	if _, _, err := codec.Decode("__etc__passwd.patch"); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath for absolute decode, got %v", err)
	}
	if _, _, err := codec.Decode("..__secrets.patch"); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath for parent escape, got %v", err)
	}
}

func TestCodecDecodesNotesWithoutValidation(t *testing.T) {
	t.Parallel()

	kind, p, err := DefaultCodec().Decode("add_pydantic_to_requirements.txt")
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if kind != KindNote || p != "add_pydantic_to_requirements" {
		t.Fatalf("unexpected decode: %s %q", kind, p)
	}
}

func TestCodecSourceExtension(t *testing.T) {
	t.Parallel()

	codec := DefaultCodec()
	codec.SourceExt = ".py"

	name, err := codec.Encode("src/service/api.py", KindReplacement)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if name != "src__service__api.patch" {
		t.Fatalf("unexpected name %q", name)
	}
	_, p, err := codec.Decode(name)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if p != "src/service/api.py" {
		t.Fatalf("unexpected decoded path %q", p)
	}

	if _, err := codec.Encode("src/service/api.go", KindReplacement); !errors.Is(err, ErrAmbiguousPath) {
		t.Fatalf("expected foreign extension to be refused, got %v", err)
	}
}

func TestCodecZeroValueUsesDefaults(t *testing.T) {
	t.Parallel()

	var codec Codec
	name, err := codec.Encode("x/y", KindReplacement)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if name != "x__y.patch" {
		t.Fatalf("unexpected name %q", name)
	}
}
