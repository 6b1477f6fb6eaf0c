package router

import (
	"fmt"

	"github.com/tajerhq/tajerbot/internal/lang"
	"github.com/tajerhq/tajerbot/internal/models"
)

// phrases holds the outbound copy per language tag. Darija replies are kept in
// Latin script because that is what most customers type.
var phrases = map[string]map[string]string{
	"en": {
		"welcome":             "Hello! Welcome to %s. What can I do for you?",
		"goodbye":             "You're welcome! Anything else, just write me.",
		"browse_prompt":       "Here is what we have. Reply with a number for details.",
		"no_products":         "Sorry, nothing matches that right now. Try another category?",
		"no_services":         "We have no services listed at the moment.",
		"which_product":       "Which product do you mean? You can reply with its number.",
		"which_service":       "Which service would you like? Reply with its number.",
		"product_not_found":   "I couldn't find that product. Want to see the list again?",
		"service_not_found":   "I couldn't find that service.",
		"product_details":     "%s — %s\nPrice: %s",
		"out_of_stock":        "Sorry, %s is out of stock right now.",
		"order_confirmed":     "Done! Your order for %dx %s is confirmed. Total: %s. Order number: %s",
		"order_failed":        "I couldn't place that order. Could you check the details and try again?",
		"ask_order_id":        "Sure — what's your order number?",
		"order_status":        "Order %s: %s",
		"order_not_found":     "I couldn't find an order with that number.",
		"ask_datetime":        "When would you like to come in? (e.g. tomorrow 10:30)",
		"appt_confirmed":      "Booked! %s on %s. See you then.",
		"appt_failed":         "I couldn't book that appointment. Could you try another time?",
		"appt_status":         "Your appointment for %s is %s.",
		"appt_not_found":      "I couldn't find an appointment for you.",
		"delivery_default":    "Delivery fees depend on your area — tell me your city and I'll check.",
		"returns_default":     "You can return items within 7 days in original condition.",
		"payment_default":     "We accept cash on delivery and bank transfer.",
		"faq_default":         "Happy to help — could you tell me a bit more?",
		"handoff":             "I'm connecting you with a member of our team. They'll reply here shortly.",
		"handoff_number":      "I'm connecting you with our team. You can also reach us directly at %s.",
		"clarify":             "Sorry, I didn't quite get that. Could you rephrase?",
		"small_talk":          "Glad to help! Anything else?",
	},
	"fr": {
		"welcome":             "Bonjour ! Bienvenue chez %s. Que puis-je faire pour vous ?",
		"goodbye":             "Avec plaisir ! N'hésitez pas si besoin.",
		"browse_prompt":       "Voici ce que nous proposons. Répondez avec un numéro pour les détails.",
		"no_products":         "Désolé, rien ne correspond pour le moment. Une autre catégorie ?",
		"no_services":         "Aucun service disponible pour le moment.",
		"which_product":       "Quel produit voulez-vous dire ? Répondez avec son numéro.",
		"which_service":       "Quel service souhaitez-vous ? Répondez avec son numéro.",
		"product_not_found":   "Je ne trouve pas ce produit. Voulez-vous revoir la liste ?",
		"service_not_found":   "Je ne trouve pas ce service.",
		"product_details":     "%s — %s\nPrix : %s",
		"out_of_stock":        "Désolé, %s est en rupture de stock.",
		"order_confirmed":     "C'est fait ! Votre commande de %dx %s est confirmée. Total : %s. Numéro : %s",
		"order_failed":        "Je n'ai pas pu passer la commande. Pouvez-vous vérifier et réessayer ?",
		"ask_order_id":        "Bien sûr — quel est votre numéro de commande ?",
		"order_status":        "Commande %s : %s",
		"order_not_found":     "Je ne trouve pas de commande avec ce numéro.",
		"ask_datetime":        "Quand souhaitez-vous venir ? (ex. demain 10h30)",
		"appt_confirmed":      "Réservé ! %s le %s. À bientôt.",
		"appt_failed":         "Je n'ai pas pu réserver. Un autre créneau ?",
		"appt_status":         "Votre rendez-vous pour %s est %s.",
		"appt_not_found":      "Je ne trouve pas de rendez-vous à votre nom.",
		"delivery_default":    "Les frais de livraison dépendent de votre zone — indiquez-moi votre ville.",
		"returns_default":     "Les retours sont acceptés sous 7 jours en état d'origine.",
		"payment_default":     "Nous acceptons le paiement à la livraison et le virement.",
		"faq_default":         "Avec plaisir — pouvez-vous m'en dire plus ?",
		"handoff":             "Je vous mets en relation avec notre équipe. Réponse ici sous peu.",
		"handoff_number":      "Je vous mets en relation avec notre équipe. Vous pouvez aussi nous joindre au %s.",
		"clarify":             "Désolé, je n'ai pas bien compris. Pouvez-vous reformuler ?",
		"small_talk":          "Ravi d'aider ! Autre chose ?",
	},
	"ar": {
		"welcome":             "مرحبا بك في %s. كيف يمكنني مساعدتك؟",
		"goodbye":             "العفو! أنا هنا إذا احتجت أي شيء.",
		"browse_prompt":       "هذا ما لدينا. أرسل الرقم لمعرفة التفاصيل.",
		"no_products":         "عذرا، لا يوجد ما يطابق طلبك حاليا.",
		"no_services":         "لا توجد خدمات متاحة حاليا.",
		"which_product":       "أي منتج تقصد؟ يمكنك الرد برقمه.",
		"which_service":       "أي خدمة تريد؟ أرسل رقمها.",
		"product_not_found":   "لم أجد هذا المنتج. هل تريد رؤية القائمة مجددا؟",
		"service_not_found":   "لم أجد هذه الخدمة.",
		"product_details":     "%s — %s\nالثمن: %s",
		"out_of_stock":        "عذرا، %s غير متوفر حاليا.",
		"order_confirmed":     "تم! طلبك %dx %s مؤكد. المجموع: %s. رقم الطلب: %s",
		"order_failed":        "تعذر تسجيل الطلب. المرجو التحقق والمحاولة مجددا.",
		"ask_order_id":        "ما هو رقم طلبك؟",
		"order_status":        "الطلب %s: %s",
		"order_not_found":     "لم أجد طلبا بهذا الرقم.",
		"ask_datetime":        "متى تريد الحضور؟ (مثلا: غدا 10:30)",
		"appt_confirmed":      "تم الحجز! %s يوم %s.",
		"appt_failed":         "تعذر الحجز. هل يناسبك وقت آخر؟",
		"appt_status":         "موعدك لـ %s هو %s.",
		"appt_not_found":      "لم أجد موعدا باسمك.",
		"delivery_default":    "تكلفة التوصيل حسب منطقتك — أرسل لي مدينتك.",
		"returns_default":     "يمكن الإرجاع خلال 7 أيام بحالته الأصلية.",
		"payment_default":     "نقبل الدفع عند الاستلام والتحويل البنكي.",
		"faq_default":         "بكل سرور — هل يمكنك التوضيح أكثر؟",
		"handoff":             "سأحولك إلى أحد أعضاء فريقنا. سيرد عليك هنا قريبا.",
		"handoff_number":      "سأحولك إلى فريقنا. يمكنك أيضا الاتصال بنا على %s.",
		"clarify":             "عذرا، لم أفهم جيدا. هل يمكنك إعادة الصياغة؟",
		"small_talk":          "مرحبا بك! هل من شيء آخر؟",
	},
	"ary": {
		"welcome":             "Mar7ba bik f %s! Ach n9der ndir lik?",
		"goodbye":             "Bla jmil! Ila bghiti chi haja ana hna.",
		"browse_prompt":       "Hahoma li 3andna. Sift raqm bach tchouf tafasil.",
		"no_products":         "Sme7 lia, makaynch chi haja b7al hakka daba.",
		"no_services":         "Makaynach khadamat daba.",
		"which_product":       "Ina produit bghiti? Sift raqmo.",
		"which_service":       "Ina service bghiti? Sift raqmo.",
		"product_not_found":   "Mal9itch had lproduit. Bghiti tchouf lista mera khra?",
		"service_not_found":   "Mal9itch had service.",
		"product_details":     "%s — %s\nTaman: %s",
		"out_of_stock":        "Sme7 lia, %s salat mn stock daba.",
		"order_confirmed":     "Safi! Tlba dyalek %dx %s tconfirmat. Total: %s. Raqm tlba: %s",
		"order_failed":        "Ma9dertch nsajjel tlba. 3afak t2ekked o 3awed.",
		"ask_order_id":        "Wakha — achno raqm tlba dyalek?",
		"order_status":        "Tlba %s: %s",
		"order_not_found":     "Mal9itch tlba b had raqm.",
		"ask_datetime":        "Imta bghiti tji? (matalan: ghedda 10:30)",
		"appt_confirmed":      "T7jez! %s nhar %s. Ntsennak.",
		"appt_failed":         "Ma9dertch n7jez. Wach kayn chi we9t akhor?",
		"appt_status":         "Lmaw3id dyalek l %s howa %s.",
		"appt_not_found":      "Mal9itch chi maw3id b smiytek.",
		"delivery_default":    "Taman livraison 3la 7sab lmdina — goul lia fin nta.",
		"returns_default":     "Imken trejje3 f 7 iyam ila kan f 7alto l2asliya.",
		"payment_default":     "Kan9eblo khlass 3nd tawsil wla virement.",
		"faq_default":         "Mar7ba — wedde7 lia chwiya 3afak?",
		"handoff":             "Ghadi nweslek m3a wa7ed mn l'équipe dyalna. Ghayjawbek hna daba.",
		"handoff_number":      "Ghadi nweslek m3a l'équipe. Imken tan tt'asel bina 3la %s.",
		"clarify":             "Sme7 lia, mafhemtch mezyan. 3awed lia 3afak?",
		"small_talk":          "Mar7ba! Wach bghiti chi haja khra?",
	},
}

// replyLanguage picks the language outbound copy is rendered in: the
// customer's known preference first, then the message's detected tags, then
// the tenant's default.
func replyLanguage(result models.IntentResult, tenant models.TenantContext, customer models.CustomerContext) string {
	if customer.Language != "" {
		if _, ok := phrases[customer.Language]; ok {
			return customer.Language
		}
	}
	fallback := "en"
	if len(tenant.Languages) > 0 {
		fallback = tenant.Languages[0]
	}
	tag := lang.Primary(result.LanguageTags, fallback)
	if _, ok := phrases[tag]; !ok {
		return "en"
	}
	return tag
}

// phrase renders the keyed copy in the given language, falling back to
// English when a translation is missing.
func phrase(langTag, key string, args ...any) string {
	table, ok := phrases[langTag]
	if !ok {
		table = phrases["en"]
	}
	tmpl, ok := table[key]
	if !ok {
		tmpl = phrases["en"][key]
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// formatPrice renders a minor-unit amount with the tenant currency.
func formatPrice(minor int64, currency string) string {
	if currency == "" {
		currency = "MAD"
	}
	return fmt.Sprintf("%.2f %s", float64(minor)/100, currency)
}
