package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/VibePDF/VibePDF-sub001/scanner"
	"github.com/VibePDF/VibePDF-sub001/security"
)

var tokenNames = map[scanner.TokenType]string{
	scanner.TokenDict:    "dict",
	scanner.TokenArray:   "array",
	scanner.TokenName:    "name",
	scanner.TokenString:  "string",
	scanner.TokenNumber:  "number",
	scanner.TokenBoolean: "bool",
	scanner.TokenNull:    "null",
	scanner.TokenRef:     "ref",
	scanner.TokenStream:  "stream",
	scanner.TokenKeyword: "keyword",
}

func main() {
	offset := flag.Int64("offset", 0, "Byte offset to start scanning at")
	limit := flag.Int("n", 200000, "Maximum number of tokens to print")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: pdfscan [flags] <pdf>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdfscan: %v\n", err)
		os.Exit(1)
	}

	s := scanner.New(data, security.DefaultLimits().ScannerConfig())
	if err := s.Seek(*offset); err != nil {
		fmt.Fprintf(os.Stderr, "pdfscan: %v\n", err)
		os.Exit(1)
	}
	for i := 0; i < *limit; i++ {
		tok, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Printf("ERR: %v\n", err)
			break
		}
		fmt.Printf("%d %s %s\n", tok.Pos, tokenNames[tok.Type], describe(tok))
	}
}

func describe(tok scanner.Token) string {
	switch tok.Type {
	case scanner.TokenName, scanner.TokenKeyword:
		return tok.Str
	case scanner.TokenString:
		if tok.Hex {
			return fmt.Sprintf("<%x>", tok.Bytes)
		}
		return fmt.Sprintf("%q", tok.Bytes)
	case scanner.TokenNumber:
		if tok.IsInt {
			return fmt.Sprint(tok.Int)
		}
		return fmt.Sprint(tok.Float)
	case scanner.TokenBoolean:
		return fmt.Sprint(tok.Bool)
	case scanner.TokenRef:
		return tok.Ref.String()
	case scanner.TokenStream:
		return fmt.Sprintf("%d bytes", len(tok.Bytes))
	}
	return ""
}
