package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"litetable/table"
)

func executeStatement(tbl *table.Table, stmt *Statement) {
	switch stmt.Type {
	case StatementInsert:
		result, err := tbl.Insert(stmt.RowToInsert)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		switch result {
		case table.ExecuteSuccess:
			fmt.Println("Executed.")
		case table.ExecuteDuplicateKey:
			fmt.Println("Error: Duplicate key.")
		case table.ExecuteTableFull:
			fmt.Println("Error: Table full.")
		}
	case StatementSelect:
		rows, err := tbl.Select()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		for _, row := range rows {
			fmt.Println(row)
		}
		fmt.Println("Executed.")
	}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Must supply a database filename.")
		os.Exit(1)
	}
	tbl, err := table.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		printPrompt()
		input, err := readInput(reader)
		if err == io.EOF {
			input = ".exit"
		} else if err != nil {
			fmt.Fprintln(os.Stderr, "Error reading input:", err)
			os.Exit(1)
		}

		if len(input) > 0 && input[0] == '.' {
			switch handleMetaCommand(input) {
			case MetaCommandExit:
				if err := tbl.Close(); err != nil {
					fmt.Fprintln(os.Stderr, "Error:", err)
					os.Exit(1)
				}
				os.Exit(0)
			case MetaCommandUnrecognizedCommand:
				fmt.Printf("Unrecognized command '%s'.\n", input)
			}
			continue
		}

		var stmt Statement
		switch prepareStatement(input, &stmt) {
		case PrepareSuccess:
			executeStatement(tbl, &stmt)
		case PrepareSyntaxError:
			fmt.Println("Syntax error. Could not parse statement.")
		case PrepareNegativeID:
			fmt.Println("ID must be positive.")
		case PrepareStringTooLong:
			fmt.Println("String is too long.")
		case PrepareUnrecognizedStatement:
			fmt.Printf("Unrecognized keyword at start of '%s'.\n", input)
		}
	}
}
