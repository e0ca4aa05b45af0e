package utils

// Word pools for memorable room tokens. Tokens combine words from
// distinct pools, so "fluffy-otter-waffle" reads naturally.

var adjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"golden", "silver", "crimson", "emerald", "purple", "bright", "gentle", "brave", "calm", "swift",
	"silent", "bouncy", "fuzzy", "plucky", "merry", "peppy", "dusty", "mellow", "frosty", "sunny",
}

var animals = []string{
	"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
	"fawn", "lamb", "raccoon", "mole", "ferret", "weasel", "beaver", "dolphin", "whale", "narwhal",
	"penguin", "flamingo", "pelican", "sparrow", "robin", "toucan", "parrot", "canary", "heron", "wren",
}

var dishes = []string{
	"pancake", "waffle", "sushi", "ramen", "curry", "taco", "burrito", "paella", "risotto", "lasagna",
	"dumpling", "noodle", "omelette", "quiche", "kebab", "fondue", "pierogi", "gnocchi", "falafel", "samosa",
}

var nature = []string{
	"sunbeam", "stardust", "breeze", "meadow", "willow", "ember", "maple", "hazel", "poppy", "pebble",
	"drizzle", "lantern", "comet", "orbit", "nebula", "canyon", "ridge", "puddle", "cove", "dune",
}
