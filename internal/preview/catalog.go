package preview

import "github.com/samber/lo"

type NamedOption struct {
	Key  string
	Name string
}

// BatchSize is the number of poses sampled for one batch.
const BatchSize = 6

var poses = []string{
	"memegang produk pajangan dengan kedua tangan di depan dada, tersenyum hangat ke arah kamera.",
	"duduk santai di sofa, memegang produk pajangan dengan satu tangan di atas meja kopi di depannya.",
	"berdiri di dekat jendela dengan pencahayaan alami, memegang produk pajangan dengan satu tangan setinggi mata, menatapnya dengan fokus.",
	"menampilkan produk pajangan di telapak tangan yang terbuka, seolah-olah menawarkannya kepada pemirsa.",
	"menyandarkan produk pajangan di bahu sambil melihat ke samping dengan ekspresi ceria.",
	"sedang dalam proses menempatkan produk pajangan di rak buku, kedua tangan dengan hati-hati menyesuaikan posisinya.",
	"memegang produk pajangan dengan kedua tangan di dekat pinggang, dengan tubuh sedikit condong ke depan dan senyum ramah.",
	"close-up di mana produk pajangan dipegang dengan lembut oleh kedua tangan di dekat wajah, menyoroti detail produk.",
	"berjalan perlahan sambil membawa produk pajangan dengan hati-hati di kedua tangan, seolah-olah membawanya ke suatu tempat yang istimewa.",
	"duduk di lantai dengan latar belakang minimalis, produk pajangan diletakkan di pangkuan.",
	"memegang produk pajangan di atas kepala dengan kedua tangan dengan ekspresi gembira dan penuh kemenangan.",
	"berpose seolah-olah menjelaskan fitur produk, satu tangan menunjuk ke detail spesifik pada pajangan.",
}

// Key is the scene description sent to the model, Name is what the form shows.
var backgrounds = []NamedOption{
	{Key: "Ruangan mewah dengan nuansa Islami, menampilkan pola geometris yang rumit, lengkungan yang elegan, dan pencahayaan yang lembut dan hangat", Name: "Ruang Tamu Islami Mewah"},
	{Key: "Interior masjid modern dengan pilar-pilar megah, kaligrafi indah, dan karpet tebal yang luas", Name: "Interior Masjid Modern"},
	{Key: "Halaman dalam sebuah istana Moorish dengan air mancur di tengah, ubin zellij yang berwarna-warni, dan taman yang rimbun", Name: "Halaman Istana Moorish"},
	{Key: "Ruang belajar yang tenang dengan rak-rak buku berisi kitab-kitab Islami, sajadah, dan jendela yang menghadap ke taman", Name: "Ruang Belajar Islami"},
	{Key: "Sebuah souk atau pasar tradisional di malam hari, diterangi oleh lentera-lentera Maroko yang tergantung", Name: "Pasar Malam Maroko"},
	{Key: "Balkon mewah yang menghadap ke Ka'bah di Mekah saat senja", Name: "Balkon Menghadap Ka'bah"},
	{Key: "A modern penthouse apartment with floor-to-ceiling windows overlooking a sprawling cityscape at dusk.", Name: "Apartemen Penthouse Modern"},
	{Key: "A classic, opulent master bedroom with a luxurious four-poster bed, antique furniture, and a Persian rug.", Name: "Kamar Tidur Utama Klasik"},
	{Key: "A grand home library with floor-to-ceiling bookshelves, leather armchairs, and a warm fireplace.", Name: "Perpustakaan Rumah Megah"},
	{Key: "A formal dining room with a long, polished mahogany table set for a banquet under a glittering crystal chandelier.", Name: "Ruang Makan Formal"},
	{Key: "A luxurious spa-like bathroom with a marble-clad bathtub, a large window with a nature view, and gold accents.", Name: "Spa/Kamar Mandi Mewah"},
	{Key: "A beautiful white sand beach with turquoise water", Name: "Pantai Pasir Putih"},
	{Key: "A lush green field with the Eiffel Tower in the background, Paris, France", Name: "Taman Menara Eiffel"},
	{Key: "An infinity pool with clear blue water under a bright sunny sky", Name: "Kolam Renang Infinity"},
	{Key: "A cozy indoor living room with a comfortable sofa", Name: "Ruang Tamu Nyaman"},
	{Key: "A stylish indoor bedroom with soft lighting", Name: "Kamar Tidur Bergaya"},
	{Key: "An outdoor flower garden bursting with colorful blooms", Name: "Taman Bunga"},
	{Key: "A sleek, modern kitchen with stainless steel appliances and marble countertops.", Name: "Dapur Modern"},
	{Key: "A futuristic cityscape at night, with towering skyscrapers and glowing neon signs.", Name: "Kota Futuristik (Malam)"},
	{Key: "A tranquil Japanese zen garden with raked sand, mossy rocks, and a small koi pond.", Name: "Taman Zen Jepang"},
	{Key: "The interior of a rustic wooden cabin, with a cozy stone fireplace and warm lighting.", Name: "Kabin Kayu Pedesaan"},
	{Key: "A minimalist art gallery with clean white walls, polished concrete floors, and focused spotlights.", Name: "Galeri Seni Minimalis"},
	{Key: "A vibrant and bustling street market in Marrakech, filled with colorful spices and lanterns.", Name: "Pasar Jalanan Maroko"},
	{Key: "A luxurious hotel lobby with high ceilings, polished marble floors, and elegant chandeliers.", Name: "Lobi Hotel Mewah"},
	{Key: "The surface of the planet Mars, with a rocky, red-orange landscape under a dusty sky.", Name: "Permukaan Planet Mars"},
	{Key: "A serene underwater scene with a vibrant coral reef and colorful tropical fish.", Name: "Pemandangan Bawah Laut"},
	{Key: "A grand, old library with floor-to-ceiling dark wood bookshelves and rolling ladders.", Name: "Perpustakaan Megah"},
}

var backgroundIndex = lo.SliceToMap(backgrounds, func(o NamedOption) (string, NamedOption) {
	return o.Key, o
})

var aspectRatios = []NamedOption{
	{Key: string(Ratio9x16), Name: "9:16 (Vertikal)"},
	{Key: string(Ratio16x9), Name: "16:9 (Horizontal)"},
	{Key: string(Ratio1x1), Name: "1:1 (Persegi)"},
}

// Poses returns a copy of the pose catalog.
func Poses() []string {
	return append([]string(nil), poses...)
}

func Backgrounds() []NamedOption {
	return append([]NamedOption(nil), backgrounds...)
}

func BackgroundByKey(key string) (NamedOption, bool) {
	o, ok := backgroundIndex[key]
	return o, ok
}

func BackgroundByIndex(i int) (NamedOption, bool) {
	if i < 0 || i >= len(backgrounds) {
		return NamedOption{}, false
	}
	return backgrounds[i], true
}

// DefaultBackground is the first catalog entry, preselected in every form.
func DefaultBackground() NamedOption {
	return backgrounds[0]
}

func AspectRatios() []NamedOption {
	return append([]NamedOption(nil), aspectRatios...)
}
