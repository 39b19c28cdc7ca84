package seed

// Photograph paths as published under the asset origin.

var laurelImages = []string{
	"/assets/Laurel Hill Suites/L6 Bathroom Essentials.jpg",
	"/assets/Laurel Hill Suites/L6 Bedroom Balcony.jpg",
	"/assets/Laurel Hill Suites/L6 Bedroom Overview.jpg",
	"/assets/Laurel Hill Suites/L6 Gym (b).jpg",
	"/assets/Laurel Hill Suites/L6 Gym (c).jpg",
	"/assets/Laurel Hill Suites/L6 Kitchen (b).jpg",
	"/assets/Laurel Hill Suites/L6 Kitchen Island .jpg",
	"/assets/Laurel Hill Suites/L6 Laundry Area.jpg",
	"/assets/Laurel Hill Suites/L6 Lounge Area (b).jpg",
	"/assets/Laurel Hill Suites/L6 Lounge Area (c).jpg",
	"/assets/Laurel Hill Suites/L6 Lounge Area (d).jpg",
	"/assets/Laurel Hill Suites/L6 MB Bathroom.jpg",
	"/assets/Laurel Hill Suites/L6 Reception (b).jpg",
	"/assets/Laurel Hill Suites/L6 Reception.jpg",
	"/assets/Laurel Hill Suites/L6 Rooftop Pool (b).jpg",
	"/assets/Laurel Hill Suites/L6 Rooftop Pool (c).jpg",
	"/assets/Laurel Hill Suites/L6 Rooftop Pool.jpg",
	"/assets/Laurel Hill Suites/L6 Sauna (b).jpg",
	"/assets/Laurel Hill Suites/L6 Sauna.jpg",
	"/assets/Laurel Hill Suites/L6 Shower.jpg",
	"/assets/Laurel Hill Suites/L6 WallArt (b).jpg",
	"/assets/Laurel Hill Suites/L6 WallArt .jpg",
}

var albaImages = []string{
	"/assets/Alba Gardens B1702/A17 Balcony.jpg",
	"/assets/Alba Gardens B1702/A17 Bathroom .jpg",
	"/assets/Alba Gardens B1702/A17 Corridor.jpg",
	"/assets/Alba Gardens B1702/A17 Dining Area.jpg",
	"/assets/Alba Gardens B1702/A17 Entrance.jpg",
	"/assets/Alba Gardens B1702/A17 GB Bathroom (b).jpg",
	"/assets/Alba Gardens B1702/A17 GB Bathroom.jpg",
	"/assets/Alba Gardens B1702/A17 Guest Bathroom.jpg",
	"/assets/Alba Gardens B1702/A17 Guest Bedroom (b).jpg",
	"/assets/Alba Gardens B1702/A17 Guest Bedroom (c).jpg",
	"/assets/Alba Gardens B1702/A17 Guest Bedroom (d).jpg",
	"/assets/Alba Gardens B1702/A17 Guest Bedroom .jpg",
	"/assets/Alba Gardens B1702/A17 Kitchen (b).jpg",
	"/assets/Alba Gardens B1702/A17 Kitchen (c).jpg",
	"/assets/Alba Gardens B1702/A17 Kitchen Appliance.jpg",
	"/assets/Alba Gardens B1702/A17 Kitchen Appliances.jpg",
	"/assets/Alba Gardens B1702/A17 Kitchen.jpg",
	"/assets/Alba Gardens B1702/A17 Laundry Area (b).jpg",
	"/assets/Alba Gardens B1702/A17 Laundry Area.jpg",
	"/assets/Alba Gardens B1702/A17 Lounge Area (b).jpg",
	"/assets/Alba Gardens B1702/A17 Lounge Area (c).jpg",
	"/assets/Alba Gardens B1702/A17 Lounge Area.jpg",
	"/assets/Alba Gardens B1702/A17 Master Bedroom (c).jpg",
	"/assets/Alba Gardens B1702/A17 Master Bedroom.jpg",
	"/assets/Alba Gardens B1702/A17 Mater Bedroom (b).jpg",
	"/assets/Alba Gardens B1702/A17 Overview Lounge Area.jpg",
	"/assets/Alba Gardens B1702/A17 Reception.jpg",
	"/assets/Alba Gardens B1702/A17 Shower (b).jpg",
	"/assets/Alba Gardens B1702/A17 Shower.jpg",
}

var burguretImages = []string{
	"/assets/Burguret Mountainside Villa/Buruguret. Living area Overview.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Swimming Pool 2.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Living room 1.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. 1st Guest Bedroom .jpg",
	"/assets/Burguret Mountainside Villa/Burguret. 1st Guest Bedroom 2.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. 1st Guest Bedroom 3.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. 2nd Guest Bedroom .jpg",
	"/assets/Burguret Mountainside Villa/Burguret. 2nd Guest Bedroom 2.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. 2nd Guest Bedroom 3.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. 2nd Guest Bedroom 4.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Entrance Pathway.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. House Entrance.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. House Overall View.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. House Side View.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Kitchen 1.0.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Kitchen 1.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Kitchen Appliances.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Kitchen.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Living Room 2.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Living Room Overview.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Living room 3.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Master Bedroom .jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Master Bedroom 2.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Master Bedroom 3.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Master Bedroom walk-in closet.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Outside Lounge Area.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Outside Patio View 2.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Outside Patio View.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Outside Patio dining area.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Outside Patio seating area.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Swimming Pool 2.jpg",
}

var narumoruImages = []string{
	"/assets/Burguret Mountainside Villa/Burguret. Living room 1.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. Master Bedroom .jpg",
	"/assets/Laurel Hill Suites/L6 Rooftop Pool.jpg",
}

var homeImages = []string{
	"/assets/Burguret Mountainside Villa/Burguret. House Overall View.jpg",
	"/assets/Laurel Hill Suites/L6 Rooftop Pool.jpg",
	"/assets/Alba Gardens B1702/A17 Balcony.jpg",
	"/assets/Burguret Mountainside Villa/Burguret. House Overall View.jpg",
	"/assets/Laurel Hill Suites/L6 Lounge Area (b).jpg",
	"/assets/Alba Gardens B1702/A17 Dining Area.jpg",
}
