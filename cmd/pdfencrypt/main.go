package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/VibePDF/VibePDF-sub001/document"
	"github.com/VibePDF/VibePDF-sub001/security"
)

type options struct {
	in, out   string
	password  string
	algorithm security.Algorithm
	user      string
	owner     string
	perms     security.Permissions
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdfencrypt: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "pdfencrypt: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: pdfencrypt [flags] <in.pdf> <out.pdf>\n")
		flag.PrintDefaults()
	}
	algorithm := flag.String("algorithm", "AES-256", "RC4-40, RC4-128, AES-128 or AES-256")
	user := flag.String("user", "", "User password")
	owner := flag.String("owner", "", "Owner password; defaults to the user password")
	password := flag.String("password", "", "Password to open the input when it is encrypted")
	noPrint := flag.Bool("no-print", false, "Deny printing")
	noCopy := flag.Bool("no-copy", false, "Deny copying text and graphics")
	noModify := flag.Bool("no-modify", false, "Deny modifying the document")
	noAnnotate := flag.Bool("no-annotate", false, "Deny adding annotations and filling forms")
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		return options{}, fmt.Errorf("need input and output paths")
	}
	alg, err := security.ParseAlgorithm(*algorithm)
	if err != nil {
		return options{}, err
	}
	opts.in, opts.out = flag.Arg(0), flag.Arg(1)
	opts.password = *password
	opts.algorithm = alg
	opts.user = *user
	opts.owner = *owner
	opts.perms = security.AllPermissions()
	if *noPrint {
		opts.perms.Print = false
		opts.perms.PrintHighQuality = false
	}
	if *noCopy {
		opts.perms.Copy = false
	}
	if *noModify {
		opts.perms.Modify = false
		opts.perms.Assemble = false
	}
	if *noAnnotate {
		opts.perms.Annotate = false
		opts.perms.FillForms = false
	}
	return opts, nil
}

func run(opts options) error {
	ctx := context.Background()
	doc, err := document.Open(ctx, opts.in, opts.password)
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.in, err)
	}
	err = doc.EnableSecurity(security.Options{
		Algorithm:     opts.algorithm,
		UserPassword:  opts.user,
		OwnerPassword: opts.owner,
		Permissions:   &opts.perms,
	})
	if err != nil {
		return err
	}
	out, err := doc.Save(ctx)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := os.WriteFile(opts.out, out, 0o644); err != nil {
		return err
	}
	fmt.Printf("%s: %d pages, %s, %d bytes\n", opts.out, doc.PageCount(), opts.algorithm, len(out))
	return nil
}
