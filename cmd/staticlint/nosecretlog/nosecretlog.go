package nosecretlog

import (
	"go/ast"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports logging calls that receive a password or a secret, either
// as a variable, a struct field or a structured-logging key.
var Analyzer = &analysis.Analyzer{
	Name: "nosecretlog",
	Doc:  "prohibits passing passwords and secrets to logging calls",
	Run:  run,
}

var loggingMethods = map[string]bool{
	"Debug": true, "Debugf": true, "Debugln": true, "Debugw": true,
	"Info": true, "Infof": true, "Infoln": true, "Infow": true,
	"Warn": true, "Warnf": true, "Warnln": true, "Warnw": true,
	"Error": true, "Errorf": true, "Errorln": true, "Errorw": true,
	"Print": true, "Printf": true, "Println": true,
	"Fatal": true, "Fatalf": true, "Fatalln": true,
}

var sensitiveWords = []string{"password", "passwd", "secret"}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		// Exclude go-build cache files
		filename := pass.Fset.File(file.Pos()).Name()
		if isGoBuildCacheFile(filename) {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok || !loggingMethods[sel.Sel.Name] {
				return true
			}

			for _, arg := range call.Args {
				if name, found := sensitiveName(arg); found {
					pass.Reportf(arg.Pos(), "%s passed to %s", name, sel.Sel.Name)
				}
			}

			return true
		})
	}

	return nil, nil
}

func sensitiveName(expr ast.Expr) (string, bool) {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name, isSensitive(e.Name)
	case *ast.SelectorExpr:
		return e.Sel.Name, isSensitive(e.Sel.Name)
	case *ast.BasicLit:
		if e.Kind != token.STRING {
			return "", false
		}
		key, err := strconv.Unquote(e.Value)
		// Only bare keys; free text such as "wrong password" is fine.
		if err != nil || strings.ContainsAny(key, " :") {
			return "", false
		}
		return key, isSensitive(key)
	}

	return "", false
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, word := range sensitiveWords {
		if strings.Contains(lower, word) {
			return true
		}
	}

	return false
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/") || strings.Contains(path, `\go-build\`)
}
