package graph

import (
	"changeimpact/internal/engine/parser"
	"context"
	"fmt"
	"testing"
)

func ring(n int) []SourceFile {
	files := make([]SourceFile, n)
	for i := 0; i < n; i++ {
		files[i] = SourceFile{
			ID:   fmt.Sprintf("f%d.ts", i),
			Text: []byte(fmt.Sprintf("import { x } from './f%d'\nexport function f%d(a) { return a }\n", (i+1)%n, i)),
		}
	}
	return files
}

func BenchmarkBuildFull(b *testing.B) {
	p := parser.New(parser.Options{})
	files := ring(500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := BuildFull(context.Background(), p, files, 4); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUpdateOne(b *testing.B) {
	p := parser.New(parser.Options{})
	files := ring(500)
	g, err := BuildFull(context.Background(), p, files, 4)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f := files[i%len(files)]
		g = g.UpdateOne(p, f.ID, f.Text)
	}
}

func BenchmarkDetectCycles(b *testing.B) {
	g, err := BuildFull(context.Background(), parser.New(parser.Options{}), ring(500), 4)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.DetectCycles()
	}
}
