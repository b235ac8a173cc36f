// Package schema implements typed validation of user-endpoint input data.
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package schema_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/cryptic-game/cryptic-go/schema"
)

var _ = Describe("Structure", func() {
	var s *schema.Structure

	BeforeEach(func() {
		s = schema.New("/ping", map[string]schema.Field{
			"n":    schema.Integer(),
			"name": schema.TextNonempty(),
		})
	})

	It("accepts matching input", func() {
		err := s.Validate(map[string]any{"n": float64(7), "name": "bob"})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires every declared field", func() {
		err := s.Validate(map[string]any{"n": float64(7)})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(`"name"`))
	})

	It("rejects type mismatches", func() {
		err := s.Validate(map[string]any{"n": "seven", "name": "bob"})
		Expect(err).To(HaveOccurred())
	})

	It("rejects fractional numbers for integer fields", func() {
		err := s.Validate(map[string]any{"n": 7.5, "name": "bob"})
		Expect(err).To(HaveOccurred())
	})

	It("accepts integral float64, as decoded from JSON", func() {
		err := s.Validate(map[string]any{"n": 7.0, "name": "bob"})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects empty values for nonempty fields", func() {
		err := s.Validate(map[string]any{"n": float64(7), "name": ""})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("empty"))
	})

	It("ignores undeclared fields", func() {
		err := s.Validate(map[string]any{"n": float64(7), "name": "bob", "extra": true})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("field kinds", func() {
		It("validates booleans", func() {
			b := schema.New("/b", map[string]schema.Field{"f": schema.Boolean()})
			Expect(b.Validate(map[string]any{"f": true})).To(Succeed())
			Expect(b.Validate(map[string]any{"f": "true"})).NotTo(Succeed())
		})

		It("validates objects", func() {
			b := schema.New("/o", map[string]schema.Field{"f": schema.Obj()})
			Expect(b.Validate(map[string]any{"f": map[string]any{}})).To(Succeed())
			Expect(b.Validate(map[string]any{"f": []any{}})).NotTo(Succeed())
		})

		It("validates sequences", func() {
			b := schema.New("/l", map[string]schema.Field{"f": schema.Sequence()})
			Expect(b.Validate(map[string]any{"f": []any{1, 2}})).To(Succeed())
			Expect(b.Validate(map[string]any{"f": "nope"})).NotTo(Succeed())
		})

		It("accepts anything for Any fields", func() {
			b := schema.New("/a", map[string]schema.Field{"f": {}})
			Expect(b.Validate(map[string]any{"f": 42})).To(Succeed())
			Expect(b.Validate(map[string]any{"f": nil})).To(Succeed())
		})
	})
})
