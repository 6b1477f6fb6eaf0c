package intent

import (
	"regexp"

	"github.com/tajerhq/tajerbot/internal/models"
)

// Rule-layer scoring: a group with at least one matching pattern scores the
// base confidence, each additional matching pattern adds a bonus up to a cap.
const (
	ruleBaseConfidence  = 0.8
	rulePatternBonus    = 0.05
	ruleMaxBonus        = 0.2
	// RuleAcceptThreshold is the confidence at which a rule-layer result is
	// accepted without consulting the external classifier.
	RuleAcceptThreshold = 0.7
)

// patternGroup is the multilingual pattern set for one intent. Patterns cover
// English, French, Arabic script, and Darija in Latin script (including
// arabizi digit substitutions).
type patternGroup struct {
	intent   models.Intent
	patterns []*regexp.Regexp
}

func pats(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// ruleGroups is evaluated in order; on equal confidence the earlier group
// wins, so the more specific intents come first.
var ruleGroups = []patternGroup{
	{models.IntentCheckOrderStatus, pats(
		`(?:where|status|track).*\border\b|\border\b.*(?:status|arrived?|shipped)`,
		`(?:où|ou|statut|suivi).*commande|commande.*(?:arrivée|arrivee|expédiée)`,
		`فين.*(?:الطلب|الطلبية)|وصل.*الطلب|تتبع.*الطلب`,
		`(?:fin|fen|wsslat|weslat).*(?:tlba|talabiya|commande)|commande dyali`,
	)},
	{models.IntentCheckAppointmentStatus, pats(
		`(?:my|when is|confirm).*appointment|appointment.*(?:confirmed|time)`,
		`mon rendez[- ]?vous|\brdv\b.*(?:confirmé|confirme|quand)|quand.*rendez[- ]?vous`,
		`موعدي|الموعد ديالي|واش.*الموعد`,
		`(?:imta|emta|wach).*(?:maw3id|rdv)|maw3id dyali`,
	)},
	{models.IntentAskDeliveryFees, pats(
		`(?:delivery|shipping).*(?:fee|cost|price|charge)|how much.*delivery|do you deliver`,
		`(?:frais|prix|coût|cout).*livraison|livraison.*(?:combien|gratuite)|livrez[- ]?vous`,
		`(?:ثمن|تكلفة|شحال).*التوصيل|التوصيل.*(?:بشحال|فابور)|كتوصلو`,
		`(?:ch7al|chhal|bch7al).*(?:livraison|tawsil|livri)|kat(?:wsslo|livriw)`,
	)},
	{models.IntentAskReturnPolicy, pats(
		`\breturn(?:s|ing)?\b.*(?:policy|item|product|order)|\brefund\b|can i return`,
		`(?:politique|conditions).*retour|rembours\w+|retourner.*(?:produit|article)`,
		`(?:سياسة|شروط).*الإرجاع|استرجاع|نرجع.*(?:المنتج|الطلب)`,
		`\b(?:nreja3|nrejja3|nraja3|nred)\b|wach.*(?:nrej3|nraja3)`,
	)},
	{models.IntentPaymentHelp, pats(
		`(?:how|can i|help).*pay\b|payment.*(?:method|option|help|failed)|\bpay(?:pal)?\b.*(?:card|cash|transfer)`,
		`(?:comment|aide).*payer|paiement|virement|par carte|en espèces`,
		`(?:كيفاش|كيف).*(?:نخلص|الدفع)|الدفع|الخلاص|نخلص`,
		`(?:kifach|kifash).*(?:nkhelles|nkheless|nkhless)|khlass|nkhelles`,
	)},
	{models.IntentRequestHuman, pats(
		`(?:talk|speak|chat).*(?:human|person|agent|someone)|real person|customer service`,
		`parler.*(?:humain|personne|conseiller|quelqu)|service client`,
		`(?:نهضر|نتكلم).*(?:مع واحد|مع شي حد|مول المحل)|خدمة الزبناء`,
		`(?:nhder|nehder|nhdr).*(?:m3a|maa).*(?:chi wa7ed|wahed|mol)|bnadem 7a9i9i`,
	)},
	{models.IntentBookAppointment, pats(
		`\bbook(?:ing)?\b|(?:make|schedule|get).*appointment|appointment.*(?:please|book)`,
		`(?:prendre|réserver|reserver).*(?:rendez[- ]?vous|rdv)|\brdv\b`,
		`(?:بغيت|نقيد|ناخد).*موعد|حجز.*موعد`,
		`(?:bghit|bghyt|nqayed|nakhod).*(?:maw3id|rdv|rendez)`,
	)},
	{models.IntentPlaceOrder, pats(
		`(?:want to|i'?ll|let me).*(?:buy|order|purchase)|\bbuy\b|place.*order|i'?ll take`,
		`(?:je veux|voudrais).*(?:acheter|commander)|acheter|commander`,
		`(?:بغيت|باغي).*نشري|نشري|شريت|طلبية جديدة`,
		`(?:bghit|bghyt|baghi).*(?:nechri|nchri|nechrih?)|nchri|chrit`,
	)},
	{models.IntentBrowseProducts, pats(
		`(?:show|see|browse|list).*products?|what.*(?:sell|have|products?)|\bcatalog(?:ue)?\b`,
		`(?:voir|montrer|liste).*produits?|qu'avez[- ]?vous|vos produits`,
		`(?:ورينى|وريني|شنو).*(?:المنتجات|عندكم)|المنتجات|السلعة`,
		`(?:wrini|wrrini|chno|chnou|achno).*(?:3andkom|3endkom|sel3a)|sel3a|lmontojat`,
	)},
	{models.IntentBrowseServices, pats(
		`(?:show|see|browse|list|what).*services?|\bservices?\b.*(?:offer|available)`,
		`(?:voir|liste).*(?:services?|prestations?)|vos services|prestations`,
		`(?:شنو|وريني).*الخدمات|الخدمات ديالكم`,
		`(?:chno|chnou|wrini).*(?:khadamat|les services)|khadamat`,
	)},
	{models.IntentProductDetails, pats(
		`(?:more|tell me).*about|details?\b|how much (?:is|does)|price of`,
		`(?:plus de |des )?détails?|plus d'info|(?:le )?prix d[eu]`,
		`تفاصيل|الثمن ديال|بشحال هاد`,
		`(?:tafasil|ch7al|chhal|bch7al).*(?:had|hada|dyal)|taman dyal`,
	)},
	{models.IntentGeneralFAQ, pats(
		`(?:opening|working).*hours|when.*open|where are you|location|address`,
		`horaires?|quand.*ouvert|où êtes[- ]?vous|adresse`,
		`(?:أوقات|ساعات).*العمل|فين.*(?:كاينين|المحل)|العنوان`,
		`(?:fin|fen).*(?:kaynin|l7anout|lma7al)|wa9tach.*(?:7alin|khdamin)`,
	)},
	{models.IntentGreet, pats(
		`^\s*(?:hi|hello|hey|good (?:morning|afternoon|evening))\b`,
		`^\s*(?:salut|bonjour|bonsoir|coucou)\b`,
		`^\s*(?:السلام|سلام|صباح الخير|مساء الخير|اهلا|أهلا|لاباس)`,
		`^\s*(?:salam|slm|slam|ahlan|labas|lbas)\b`,
	)},
	{models.IntentSmallTalk, pats(
		`^\s*(?:thanks?|thank you|ok(?:ay)?|cool|great|bye|goodbye)\b`,
		`^\s*(?:merci|d'accord|super|parfait|au revoir)\b`,
		`^\s*(?:شكرا|بسلامة|واخا|مزيان)`,
		`^\s*(?:choukran|chokran|wakha|wkha|mzyan|bslama|bslma)\b`,
	)},
}

// classifyRules evaluates every pattern group against the normalized message
// and returns the highest-confidence intent. ok is false when nothing matched.
func classifyRules(normalized string) (best models.Intent, confidence float64, ok bool) {
	for _, g := range ruleGroups {
		matches := 0
		for _, p := range g.patterns {
			if p.MatchString(normalized) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		bonus := rulePatternBonus * float64(matches-1)
		if bonus > ruleMaxBonus {
			bonus = ruleMaxBonus
		}
		conf := ruleBaseConfidence + bonus
		if !ok || conf > confidence {
			best, confidence, ok = g.intent, conf, true
		}
	}
	return best, confidence, ok
}
