package parser

import "testing"

func FuzzParse(f *testing.F) {
	f.Add([]byte(`import React, { useState } from 'react'
import { api } from '@/lib/api'
export default function Page({ id }) {
  const [v] = useState(0)
  fetch('/api/users', { method: 'POST' })
  return <div/>
}`))
	f.Add([]byte("/* unterminated\nimport x from './x'"))
	f.Add([]byte("export { a as b, c }\nconst s = `${'//'}`"))

	p := New(Options{Aliases: map[string]string{"@/": "src/"}})
	exists := func(string) bool { return true }
	f.Fuzz(func(t *testing.T, data []byte) {
		rec := p.Parse("src/fuzz.tsx", data, exists)
		if rec == nil {
			t.Fatal("nil record")
		}
		if rec.Path != "src/fuzz.tsx" {
			t.Fatalf("path = %q", rec.Path)
		}
		for i := 1; i < len(rec.Dependencies); i++ {
			if rec.Dependencies[i-1] >= rec.Dependencies[i] {
				t.Fatalf("dependencies not sorted and unique: %v", rec.Dependencies)
			}
		}
		_ = FunctionSignatures(string(data))
		_ = ExportNames(string(data))
	})
}
