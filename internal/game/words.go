package game

import (
	"context"
	"math/rand"

	"github.com/aaronzipp/imposter/internal/models"
)

// Categories are the themes offered on category select
var Categories = []models.Category{
	{ID: "food", Name: "Food & Drinks", Emoji: "🍕", Description: "Delicious treats and beverages"},
	{ID: "places", Name: "Places", Emoji: "🌍", Description: "Cities, landmarks, and locations"},
	{ID: "animals", Name: "Animals", Emoji: "🦁", Description: "Wild and domestic creatures"},
	{ID: "objects", Name: "Daily Objects", Emoji: "🎒", Description: "Things you see every day"},
	{ID: "jobs", Name: "Professions", Emoji: "👨‍⚕️", Description: "Careers and hobbies"},
	{ID: AICategoryID, Name: "AI Surprise", Emoji: "✨", Description: "A generated custom theme"},
}

// StaticWords holds the word pairs for every non-AI category
var StaticWords = map[string][]models.WordPair{
	"food": {
		{Target: "Pizza", Decoy: "Pasta"},
		{Target: "Ice Cream", Decoy: "Frozen Yogurt"},
		{Target: "Coffee", Decoy: "Tea"},
		{Target: "Hamburger", Decoy: "Hot Dog"},
		{Target: "Sushi", Decoy: "Ramen"},
		{Target: "Cake", Decoy: "Cupcake"},
	},
	"places": {
		{Target: "Library", Decoy: "Bookstore"},
		{Target: "Cinema", Decoy: "Theater"},
		{Target: "Beach", Decoy: "Lake"},
		{Target: "Airport", Decoy: "Train Station"},
		{Target: "Museum", Decoy: "Art Gallery"},
		{Target: "Hospital", Decoy: "Clinic"},
	},
	"animals": {
		{Target: "Tiger", Decoy: "Lion"},
		{Target: "Dolphin", Decoy: "Whale"},
		{Target: "Eagle", Decoy: "Hawk"},
		{Target: "Crocodile", Decoy: "Alligator"},
		{Target: "Elephant", Decoy: "Mammoth"},
		{Target: "Penguin", Decoy: "Puffin"},
	},
	"objects": {
		{Target: "Smartphone", Decoy: "Tablet"},
		{Target: "Pencil", Decoy: "Pen"},
		{Target: "Bicycle", Decoy: "Scooter"},
		{Target: "Glasses", Decoy: "Sunglasses"},
		{Target: "Hammer", Decoy: "Screwdriver"},
		{Target: "Watch", Decoy: "Clock"},
	},
	"jobs": {
		{Target: "Doctor", Decoy: "Nurse"},
		{Target: "Pilot", Decoy: "Astronaut"},
		{Target: "Chef", Decoy: "Baker"},
		{Target: "Firefighter", Decoy: "Police Officer"},
		{Target: "Teacher", Decoy: "Professor"},
		{Target: "Athlete", Decoy: "Coach"},
	},
}

// PairSource produces a word pair for the AI category; it never fails
type PairSource interface {
	Pair(ctx context.Context, theme string) models.WordPair
}

// CategoryByID looks up a category
func CategoryByID(id string) (models.Category, bool) {
	for _, c := range Categories {
		if c.ID == id {
			return c, true
		}
	}
	return models.Category{}, false
}

// PickWordPair chooses the round's pair: generated for the AI category, random from the table otherwise
func PickWordPair(ctx context.Context, rng *rand.Rand, category models.Category, ai PairSource) (models.WordPair, bool) {
	if category.ID == AICategoryID {
		return ai.Pair(ctx, ""), true
	}
	list := StaticWords[category.ID]
	if len(list) == 0 {
		return models.WordPair{}, false
	}
	return list[rng.Intn(len(list))], true
}
