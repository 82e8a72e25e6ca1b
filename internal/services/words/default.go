package words

var defaultWords = []string{
	"apple", "banana", "bicycle", "bridge", "butterfly", "cactus", "camera", "candle",
	"castle", "cat", "chair", "cloud", "clock", "computer", "cookie", "crown",
	"diamond", "dinosaur", "dog", "dolphin", "dragon", "drum", "elephant", "feather",
	"fire", "fish", "flower", "ghost", "giraffe", "glasses", "guitar", "hammer",
	"helicopter", "house", "ice cream", "island", "jellyfish", "kangaroo", "key", "kite",
	"ladder", "lamp", "lighthouse", "lion", "moon", "mountain", "mushroom", "octopus",
	"owl", "penguin", "piano", "pizza", "rainbow", "robot", "rocket", "scissors",
	"snowman", "spider", "star", "sun", "sword", "tree", "turtle", "umbrella",
	"volcano", "whale", "windmill", "zebra",
}
