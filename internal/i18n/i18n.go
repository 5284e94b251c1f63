// Package i18n holds the dashboard's translation tables. The deployment
// serves Arabic and French; Arabic is the default.
package i18n

// DefaultLang is used when the session carries no language choice.
const DefaultLang = "ar"

// Supported reports whether lang has a translation table.
func Supported(lang string) bool {
	_, ok := translations[lang]
	return ok
}

// Pack returns the translation table for lang, falling back to the default
// language.
func Pack(lang string) map[string]any {
	if t, ok := translations[lang]; ok {
		return t
	}
	return translations[DefaultLang]
}

var translations = map[string]map[string]any{
	"ar": {
		"login":                 "تسجيل الدخول",
		"register":              "إنشاء حساب",
		"profile":               "الملف الشخصي",
		"notifications":         "الإشعارات",
		"guide":                 "الدليل العملي",
		"logout":                "خروج",
		"welcome":               "مرحباً",
		"manual_control":        "التحكم اليدوي",
		"start":                 "ابدأ",
		"stop":                  "أوقف",
		"latest_image":          "أحدث صورة للنبتة",
		"no_image":              "لم يتم تحميل أي صورة بعد.",
		"update":                "تحديث",
		"home":                  "الرئيسية",
		"esp32_conn":            "اتصال ESP32",
		"esp32":                 "ESP32",
		"esp32_ip":              "عنوان ESP32",
		"last_update":           "آخر تحديث",
		"never":                 "أبداً",
		"disconnected":          "غير متصل",
		"sensor_stats":          "إحصائيات المستشعرات",
		"temperature":           "درجة الحرارة",
		"humidity":              "الرطوبة",
		"soil":                  "التربة",
		"light":                 "الضوء",
		"voice_control":         "التحكم الصوتي",
		"voice_instruction":     "اضغط على الزر وقل \"ابدأ الري\"، \"أوقف الري\"، أو \"تحقق من الحالة\".",
		"activate":              "تفعيل",
		"manual_instruction":    "استخدم الأزرار أدناه للتحكم في الري يدوياً.",
		"notifications_section": "الإشعارات",
		"guide_section":         "الدليل العملي",
		"humidity_chart":        "تطور الرطوبة",
		"weekdays":              []string{"الإثنين", "الثلاثاء", "الأربعاء", "الخميس", "الجمعة", "السبت", "الأحد"},
		"humidity_label":        "الرطوبة (%)",
	},
	"fr": {
		"login":                 "Connexion",
		"register":              "Créer un compte",
		"profile":               "Profil",
		"notifications":         "Notifications",
		"guide":                 "Guide pratique",
		"logout":                "Quitter",
		"welcome":               "Bienvenue",
		"manual_control":        "Commande Manuelle",
		"start":                 "Démarrer",
		"stop":                  "Arrêter",
		"latest_image":          "Dernière Image de la Plante",
		"no_image":              "Aucune image n'a encore été téléchargée.",
		"update":                "Mettre à jour",
		"home":                  "Accueil",
		"esp32_conn":            "Connexion ESP32",
		"esp32":                 "ESP32",
		"esp32_ip":              "IP ESP32",
		"last_update":           "Dernière mise à jour",
		"never":                 "Jamais",
		"disconnected":          "Déconnecté",
		"sensor_stats":          "Statistiques capteurs",
		"temperature":           "Température",
		"humidity":              "Humidité",
		"soil":                  "Sol",
		"light":                 "Lumière",
		"voice_control":         "Commande Vocale",
		"voice_instruction":     "Cliquez sur le bouton et dites \"Démarre l'irrigation\", \"Arrête l'irrigation\", ou \"Vérifie le statut\".",
		"activate":              "Activer",
		"manual_instruction":    "Utilisez les boutons ci-dessous pour contrôler l'irrigation manuellement.",
		"notifications_section": "Notifications",
		"guide_section":         "Guide pratique",
		"humidity_chart":        "Évolution de l'humidité",
		"weekdays":              []string{"Lun", "Mar", "Mer", "Jeu", "Ven", "Sam", "Dim"},
		"humidity_label":        "Humidité (%)",
	},
}
