// Package content holds the curated texts served by the entertainment, news
// and movie handlers.
package content

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

const rule = "━━━━━━━━━━━━━━━━━━━━"

var jokes = []string{
	"Pourquoi les plongeurs plongent-ils toujours en arrière et jamais en avant ?\n\nParce que sinon, ils tombent dans le bateau ! 😂",
	"Que dit un escargot quand il croise une limace ?\n\nRegarde, un nudiste ! 🐌",
	"Comment appelle-t-on un chat tombé dans un pot de peinture le jour de Noël ?\n\nUn chat-mallow ! 🎨",
}

var quotes = []string{
	"\"La vie, c'est comme une bicyclette, il faut avancer pour ne pas perdre l'équilibre.\"\n\n✍️ Albert Einstein",
	"\"Le succès, c'est tomber sept fois et se relever huit.\"\n\n✍️ Proverbe japonais",
	"\"L'imagination est plus importante que la connaissance.\"\n\n✍️ Albert Einstein",
}

var facts = []string{
	"Les pieuvres ont trois cœurs et du sang bleu ! 🐙",
	"Un groupe de flamants roses s'appelle une 'flamboyance' ! 🦩",
	"Les bananes sont radioactives (mais sans danger) ! 🍌",
	"Il y a plus d'arbres sur Terre que d'étoiles dans la Voie lactée ! 🌳",
}

var headlines = []string{
	"🌍 Actualité internationale importante",
	"🏛️ Politique française en mouvement",
	"💼 Économie et marchés financiers",
	"⚽ Sport et compétitions",
	"🔬 Sciences et technologies",
}

var movies = []string{
	"🎭 Avatar: La Voie de l'eau",
	"🦸 Black Panther: Wakanda Forever",
	"🏃 Top Gun: Maverick",
	"🧙 Les Animaux fantastiques 3",
	"🚗 Fast & Furious 10",
}

// Catalog renders the curated content. Random picks go through an
// injectable picker so replies are reproducible in tests.
type Catalog struct {
	pick func(n int) int
}

type Option func(*Catalog)

// WithPicker sets the function choosing an index in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(c *Catalog) {
		if pick != nil {
			c.pick = pick
		}
	}
}

func New(opts ...Option) *Catalog {
	c := &Catalog{pick: rand.IntN}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Catalog) Joke() string {
	return section("😂 BLAGUE DU JOUR", c.choose(jokes))
}

func (c *Catalog) Quote() string {
	return section("💭 CITATION INSPIRANTE", c.choose(quotes))
}

func (c *Catalog) Fact() string {
	return section("💡 LE SAVIEZ-VOUS ?", c.choose(facts))
}

func (c *Catalog) News() string {
	return ranked("📰 ACTUALITÉS DU JOUR", headlines, "(Service actualités en mode démo)")
}

func (c *Catalog) Movies() string {
	return ranked("🎬 FILMS POPULAIRES", movies, "(Service films en mode démo)")
}

func (c *Catalog) choose(items []string) string {
	i := c.pick(len(items))
	if i < 0 || i >= len(items) {
		i = 0
	}

	return items[i]
}

func section(title string, body string) string {
	return title + "\n" + rule + "\n\n" + body
}

func ranked(title string, items []string, note string) string {
	var b strings.Builder
	b.WriteString(title + "\n" + rule + "\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	b.WriteString("\n" + note)

	return b.String()
}
