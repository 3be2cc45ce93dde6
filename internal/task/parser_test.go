package task

import (
	"reflect"
	"testing"

	"github.com/behrlich/taskd"
)

func TestParseSimpleCommand(t *testing.T) {
	programs, err := Parse("echo hi")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Program{{"echo", "hi"}}
	if !reflect.DeepEqual(programs, want) {
		t.Errorf("got %v, want %v", programs, want)
	}
}

func TestParsePipeline(t *testing.T) {
	programs, err := Parse("echo a | wc -c")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Program{{"echo", "a"}, {"wc", "-c"}}
	if !reflect.DeepEqual(programs, want) {
		t.Errorf("got %v, want %v", programs, want)
	}
}

func TestParseDoubleQuotes(t *testing.T) {
	programs, err := Parse(`echo "hello world"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Program{{"echo", "hello world"}}
	if !reflect.DeepEqual(programs, want) {
		t.Errorf("got %v, want %v", programs, want)
	}
}

func TestParseSingleQuotesPermitDoubleInside(t *testing.T) {
	programs, err := Parse(`echo 'say "hi"'`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Program{{"echo", `say "hi"`}}
	if !reflect.DeepEqual(programs, want) {
		t.Errorf("got %v, want %v", programs, want)
	}
}

func TestParseDoubleQuotesPermitSingleInside(t *testing.T) {
	programs, err := Parse(`echo "it's fine"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Program{{"echo", "it's fine"}}
	if !reflect.DeepEqual(programs, want) {
		t.Errorf("got %v, want %v", programs, want)
	}
}

func TestParseEscapedSpace(t *testing.T) {
	programs, err := Parse(`echo foo\ bar`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Program{{"echo", "foo bar"}}
	if !reflect.DeepEqual(programs, want) {
		t.Errorf("got %v, want %v", programs, want)
	}
}

func TestParseEscapedBackslashAndQuote(t *testing.T) {
	programs, err := Parse(`echo \\ \"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Program{{"echo", `\`, `"`}}
	if !reflect.DeepEqual(programs, want) {
		t.Errorf("got %v, want %v", programs, want)
	}
}

func TestParseOtherEscapePreservedLiterally(t *testing.T) {
	programs, err := Parse(`echo \n`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Program{{"echo", `\n`}}
	if !reflect.DeepEqual(programs, want) {
		t.Errorf("got %v, want %v", programs, want)
	}
}

func TestParseEscapedBackslashAndQuoteInsideDoubleQuotes(t *testing.T) {
	programs, err := Parse(`echo "a\\b" "c\"d"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Program{{"echo", `a\b`, `c"d`}}
	if !reflect.DeepEqual(programs, want) {
		t.Errorf("got %v, want %v", programs, want)
	}
}

func TestParseEscapedSpaceInsideDoubleQuotesStaysLiteral(t *testing.T) {
	programs, err := Parse(`echo "a\ b"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Program{{"echo", `a\ b`}}
	if !reflect.DeepEqual(programs, want) {
		t.Errorf("got %v, want %v", programs, want)
	}
}

func TestParseUnterminatedQuoteFails(t *testing.T) {
	_, err := Parse(`echo "unterminated`)
	if !taskd.IsKind(err, taskd.KindInvalidArgument) {
		t.Errorf("expected KindInvalidArgument, got %v", err)
	}
}

func TestParseUnterminatedEscapeFails(t *testing.T) {
	_, err := Parse(`echo foo\`)
	if !taskd.IsKind(err, taskd.KindInvalidArgument) {
		t.Errorf("expected KindInvalidArgument, got %v", err)
	}
}

func TestParseLeadingPipeFails(t *testing.T) {
	_, err := Parse("| echo hi")
	if !taskd.IsKind(err, taskd.KindInvalidArgument) {
		t.Errorf("expected KindInvalidArgument, got %v", err)
	}
}

func TestParseTrailingPipeFails(t *testing.T) {
	_, err := Parse("echo hi |")
	if !taskd.IsKind(err, taskd.KindInvalidArgument) {
		t.Errorf("expected KindInvalidArgument, got %v", err)
	}
}

func TestParseAdjacentPipesFails(t *testing.T) {
	_, err := Parse("echo hi || wc -l")
	if !taskd.IsKind(err, taskd.KindInvalidArgument) {
		t.Errorf("expected KindInvalidArgument, got %v", err)
	}
}

func TestParseMultipleSpacesCollapse(t *testing.T) {
	programs, err := Parse("echo    hi")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Program{{"echo", "hi"}}
	if !reflect.DeepEqual(programs, want) {
		t.Errorf("got %v, want %v", programs, want)
	}
}

func TestParseIdempotentRoundTrip(t *testing.T) {
	programs, err := Parse(`echo hello`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cloned := make([]Program, len(programs))
	for i, p := range programs {
		cloned[i] = p.Clone()
	}
	if !reflect.DeepEqual(programs, cloned) {
		t.Errorf("clone mismatch: got %v, want %v", cloned, programs)
	}
}
