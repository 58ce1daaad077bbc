package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type MenuItem struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string        `bson:"name" json:"name"`
	Description string        `bson:"description" json:"description"`
	Price       float64       `bson:"price" json:"price"`
	Image       string        `bson:"image" json:"image"`
	Link        string        `bson:"link,omitempty" json:"link,omitempty"`
	CreatedAt   time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updatedAt"`
}

type Product struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string        `bson:"name" json:"name"`
	Price       float64       `bson:"price" json:"price"`
	Description string        `bson:"description" json:"description"`
	Image       string        `bson:"image" json:"image"`
}

// DefaultMenu is the menu the seeder installs on an empty database.
func DefaultMenu() []MenuItem {
	return []MenuItem{
		{Name: "Rice", Description: "Steamed white rice", Price: 5.99, Image: "rice.jpg"},
		{Name: "Pasta", Description: "Creamy Alfredo pasta", Price: 7.49, Image: "pasta.jpg"},
		{Name: "Beans", Description: "Nutritious cooked beans", Price: 4.99, Image: "beans.jpg"},
		{Name: "Spaghetti", Description: "Tomato-based spaghetti", Price: 6.99, Image: "spaghetti.jpg"},
		{Name: "Noodles", Description: "Spicy stir-fried noodles", Price: 5.49, Image: "noodles.jpg"},
		{Name: "Cheese", Description: "Fresh and creamy cheese", Price: 3.99, Image: "cheese.jpg"},
		{Name: "Curry-Sauce", Description: "Savory curry sauce", Price: 4.49, Image: "curry-sauce.jpg"},
		{Name: "Stew", Description: "Rich beef stew", Price: 6.49, Image: "stew.jpg"},
		{Name: "Turkey", Description: "Juicy roasted turkey", Price: 8.99, Image: "turkey.jpg"},
	}
}

func DefaultProducts() []Product {
	return []Product{
		{Name: "Apple", Price: 1.99, Description: "Fresh and juicy apple.", Image: "/images/apple.jpg"},
		{Name: "Banana", Price: 0.99, Description: "Ripe and sweet banana.", Image: "/images/banana.jpg"},
		{Name: "Orange", Price: 2.49, Description: "Citrusy and tangy orange.", Image: "/images/orange.jpg"},
	}
}
