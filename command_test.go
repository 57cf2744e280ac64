package main

import (
	"strings"
	"testing"

	"litetable/table"
)

func TestHandleMetaCommand(t *testing.T) {
	if got := handleMetaCommand(".exit"); got != MetaCommandExit {
		t.Errorf("handleMetaCommand(.exit) = %v; want exit", got)
	}
	if got := handleMetaCommand(" .exit "); got != MetaCommandExit {
		t.Errorf("handleMetaCommand with padding = %v; want exit", got)
	}
	if got := handleMetaCommand(".tables"); got != MetaCommandUnrecognizedCommand {
		t.Errorf("handleMetaCommand(.tables) = %v; want unrecognized", got)
	}
}

func TestPrepareStatement(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  PrepareResult
	}{
		{"valid insert", "insert 1 alice alice@example.com", PrepareSuccess},
		{"valid select", "select", PrepareSuccess},
		{"select with padding", "  select  ", PrepareSuccess},
		{"missing insert args", "insert 1 alice", PrepareSyntaxError},
		{"extra insert args", "insert 1 alice a@b extra", PrepareSyntaxError},
		{"non numeric id", "insert abc alice a@b", PrepareSyntaxError},
		{"negative id", "insert -1 alice a@b", PrepareNegativeID},
		{"id beyond u32", "insert 4294967296 alice a@b", PrepareSyntaxError},
		{"username too long", "insert 1 " + strings.Repeat("u", table.UsernameMaxLen+1) + " a@b", PrepareStringTooLong},
		{"email too long", "insert 1 alice " + strings.Repeat("e", table.EmailMaxLen+1), PrepareStringTooLong},
		{"unknown keyword", "update foo", PrepareUnrecognizedStatement},
		{"empty line", "", PrepareUnrecognizedStatement},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stmt Statement
			if got := prepareStatement(tc.input, &stmt); got != tc.want {
				t.Errorf("prepareStatement(%q) = %v; want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestPrepareInsertFillsRow(t *testing.T) {
	var stmt Statement
	if got := prepareStatement("insert 42 bob bob@example.com", &stmt); got != PrepareSuccess {
		t.Fatalf("prepareStatement = %v", got)
	}
	if stmt.Type != StatementInsert {
		t.Errorf("statement type = %v", stmt.Type)
	}
	want := table.Row{ID: 42, Username: "bob", Email: "bob@example.com"}
	if stmt.RowToInsert != want {
		t.Errorf("row = %+v; want %+v", stmt.RowToInsert, want)
	}
}

func TestPrepareStatementBoundaryLengths(t *testing.T) {
	var stmt Statement
	input := "insert 1 " + strings.Repeat("u", table.UsernameMaxLen) + " " + strings.Repeat("e", table.EmailMaxLen)
	if got := prepareStatement(input, &stmt); got != PrepareSuccess {
		t.Errorf("max-length fields rejected: %v", got)
	}
	if got := prepareStatement("insert 4294967295 a b", &stmt); got != PrepareSuccess {
		t.Errorf("max u32 id rejected: %v", got)
	}
}
