package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/alecthomas/repr"
	"github.com/pkg/profile"
	"github.com/pontaoski/kaleigo/ast"
	"github.com/pontaoski/kaleigo/codegen"
	"github.com/pontaoski/kaleigo/errors"
	"github.com/pontaoski/kaleigo/lexer"
	"github.com/pontaoski/kaleigo/manifest"
	"github.com/pontaoski/kaleigo/native"
	"github.com/pontaoski/kaleigo/parser"
	"github.com/pontaoski/kaleigo/session"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"
)

type input struct {
	name   string
	reader io.Reader
}

// inputs opens every file argument, or stdin when there are none.
func inputs(c *cli.Context) ([]input, func(), error) {
	if c.Args().Len() == 0 {
		return []input{{"<stdin>", os.Stdin}}, func() {}, nil
	}

	var ret []input
	var handles []*os.File
	closeAll := func() {
		for _, h := range handles {
			h.Close()
		}
	}
	for _, path := range c.Args().Slice() {
		handle, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		handles = append(handles, handle)
		ret = append(ret, input{path, handle})
	}
	return ret, closeAll, nil
}

// dumpUnit prints tl as a repr tree, or as one s-expression line.
func dumpUnit(w io.Writer, tl ast.TopLevel, sexpr bool) {
	if sexpr {
		fmt.Fprintln(w, ast.Format(tl))
		return
	}
	repr.New(w, repr.Indent("  ")).Println(tl)
}

func logger(c *cli.Context) *slog.Logger {
	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newSession(c *cli.Context, mode session.Mode, opts ...session.Option) (*session.Session, manifest.Manifest, error) {
	doc, err := manifest.Load(".")
	if err != nil {
		return nil, doc, err
	}

	natives := []native.Option{}
	if len(doc.Libraries) > 0 {
		natives = append(natives, native.WithLibraries(doc.Libraries...))
	}

	opts = append([]session.Option{
		session.WithPackage(doc.Package),
		session.WithNatives(native.NewRegistry(natives...)),
		session.WithLogger(logger(c)),
		session.WithDiagnostics(session.NewPrinter(os.Stderr, c.Bool("trace"))),
	}, opts...)
	return session.New(mode, opts...), doc, nil
}

// runAll feeds the manifest's prelude and then the command's inputs to s.
func runAll(c *cli.Context, s *session.Session, doc manifest.Manifest) error {
	failures := 0
	for _, path := range doc.PreludePaths() {
		n, err := s.RunFile(path)
		if err != nil {
			return err
		}
		failures += n
	}

	ins, closeAll, err := inputs(c)
	if err != nil {
		return err
	}
	defer closeAll()

	for _, in := range ins {
		failures += s.Run(in.reader, in.name)
	}
	if failures > 0 {
		return cli.Exit(fmt.Sprintf("%d units failed", failures), 1)
	}
	return nil
}

func compileModule(c *cli.Context) (string, manifest.Manifest, error) {
	s, doc, err := newSession(c, session.Compile)
	if err != nil {
		return "", doc, err
	}
	if err := runAll(c, s, doc); err != nil {
		return "", doc, err
	}

	module, err := s.Generator().Finish()
	if err != nil {
		return "", doc, err
	}
	return module.String(), doc, nil
}

func main() {
	var prof interface{ Stop() }

	app := &cli.App{
		Name:  "kaleigo",
		Usage: "kaleidoscope interpreter and compiler",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log each unit as it is processed",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "print where each error was raised",
			},
			&cli.StringFlag{
				Name:  "profile",
				Usage: "write a CPU profile into `DIR`",
			},
		},
		Before: func(c *cli.Context) error {
			if dir := c.String("profile"); dir != "" {
				prof = profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.Quiet)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if prof != nil {
				prof.Stop()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "init a directory",
				ArgsUsage: "PACKAGE",
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if name == "" {
						return cli.Exit("no package name provided", 1)
					}
					return manifest.Write(".", manifest.Manifest{
						Package:   name,
						Libraries: native.DefaultLibraries,
					})
				},
			},
			{
				Name:      "run",
				Usage:     "interpret files, or stdin",
				ArgsUsage: "[FILE...]",
				Action: func(c *cli.Context) error {
					s, doc, err := newSession(c, session.Interpret, session.WithResults(func(r session.Result) {
						if r.HasValue {
							fmt.Printf("Evaluated to %f\n", r.Value)
						}
					}))
					if err != nil {
						return err
					}
					defer s.Interpreter().Natives().Close()

					return runAll(c, s, doc)
				},
			},
			{
				Name:      "ir",
				Usage:     "print the LLVM IR for files, or stdin",
				ArgsUsage: "[FILE...]",
				Action: func(c *cli.Context) error {
					module, _, err := compileModule(c)
					if err != nil {
						return err
					}
					fmt.Print(module)
					return nil
				},
			},
			{
				Name:      "build",
				Usage:     "build a shared library",
				ArgsUsage: "[FILE...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name: "output",
					},
					&cli.StringFlag{
						Name:  "cc",
						Value: "clang",
					},
				},
				Action: func(c *cli.Context) error {
					module, doc, err := compileModule(c)
					if err != nil {
						return err
					}

					out := c.String("output")
					if out == "" {
						out = "lib" + doc.Package + ".so"
					}

					fi, err := ioutil.TempFile("", "*.ll")
					if err != nil {
						return err
					}
					defer os.Remove(fi.Name())
					defer fi.Close()
					if _, err := io.Copy(fi, strings.NewReader(module)); err != nil {
						return err
					}

					cmd := exec.Command(c.String("cc"), "-shared", "-fPIC", "-o", out, fi.Name())
					cmd.Stdout = os.Stdout
					cmd.Stderr = os.Stderr

					if err := cmd.Run(); err != nil {
						return tracerr.Wrap(err)
					}
					return nil
				},
			},
			{
				Name:      "ast",
				Usage:     "dump the syntax tree of each unit",
				ArgsUsage: "[FILE...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "sexpr",
						Usage: "print each unit as one s-expression",
					},
				},
				Action: func(c *cli.Context) error {
					ins, closeAll, err := inputs(c)
					if err != nil {
						return err
					}
					defer closeAll()

					diag := session.NewPrinter(os.Stderr, c.Bool("trace"))
					for _, in := range ins {
						p := parser.NewParser(lexer.NewLexer(in.reader, in.name))
						for {
							tl, err := p.ParseTopLevel()
							if err == io.EOF {
								break
							}
							if err != nil {
								diag.Report(errors.KindOf(err), err)
								continue
							}
							dumpUnit(os.Stdout, tl, c.Bool("sexpr"))
						}
					}
					return nil
				},
			},
			{
				Name:      "tokens",
				Usage:     "print the tokens of files, or stdin",
				ArgsUsage: "[FILE...]",
				Action: func(c *cli.Context) error {
					ins, closeAll, err := inputs(c)
					if err != nil {
						return err
					}
					defer closeAll()

					for _, in := range ins {
						l := lexer.NewLexer(in.reader, in.name)
						for _, tok := range l.All() {
							fmt.Printf("%s\t%s\n", tok.Location.From, tok)
						}
						if l.Err() != nil {
							return l.Err()
						}
					}
					return nil
				},
			},
			{
				Name:      "signatures",
				Usage:     "dump the signature table of a built library",
				ArgsUsage: "LIBRARY",
				Action: func(c *cli.Context) error {
					data, err := native.ReadSignatures(c.Args().First(), codegen.SignatureSymbol)
					if err != nil {
						return err
					}
					sigs, err := codegen.ParseSignatures(data)
					if err != nil {
						return err
					}
					repr.Println(sigs)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		if _, ok := err.(cli.ExitCoder); !ok {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
