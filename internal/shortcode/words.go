package shortcode

var animals = []string{
	"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
	"chick", "duckling", "fawn", "foal", "lamb", "calf", "raccoon", "mole", "ferret", "beaver",
	"dolphin", "whale", "narwhal", "penguin", "flamingo", "pelican", "sparrow", "robin", "toucan", "parrot",
}

var dishes = []string{
	"pancake", "waffle", "sushi", "ramen", "curry", "taco", "burrito", "biryani", "paella", "risotto",
	"lasagna", "pizza", "burger", "salad", "soup", "stew", "dumpling", "noodle", "omelette", "quiche",
	"sandwich", "kebab", "fondue", "pierogi", "gnocchi", "falafel", "samosa", "poutine", "dimsum", "bagel",
}

var things = []string{
	"sunbeam", "stardust", "pepper", "muffin", "bubble", "sprout", "glimmer", "whisker", "echo", "jelly",
	"marble", "maple", "cocoa", "hazel", "breeze", "meadow", "willow", "ember", "pixel", "biscuit",
	"cupcake", "nugget", "crumb", "toffee", "sprinkle", "twig", "poppy", "lucky", "cinnamon", "clover",
}
